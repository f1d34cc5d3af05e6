package extractors

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dslipak/pdf"
)

// PDFExtractor PDF 文件提取器
// 每个含有效文本的页面产出一个 Segment，并记录 1 起始的页码
type PDFExtractor struct{}

// NewPDFExtractor 创建 PDF 提取器
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Load 按页解析 PDF 文件。
// 提取结果为空白或无法解码的页面被静默跳过，不算错误。
func (p *PDFExtractor) Load(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取 PDF 内容失败: %w", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("打开 PDF 失败: %w", err)
	}

	var segments []Segment
	numPages := r.NumPage()

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		// 单页解码失败视同空白页，不影响其余页面
		text, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}

		segments = append(segments, Segment{
			Text: text,
			Metadata: map[string]string{
				MetaPageLabel: strconv.Itoa(i),
			},
		})
	}

	return segments, nil
}

// SupportedExtensions 支持的文件扩展名
func (p *PDFExtractor) SupportedExtensions() []string {
	return []string{".pdf"}
}

// CanExtract 检查是否可以解析指定扩展名的文件
func (p *PDFExtractor) CanExtract(extension string) bool {
	return canExtract(extension, p.SupportedExtensions())
}
