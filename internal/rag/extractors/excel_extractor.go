package extractors

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ExcelExtractor 电子表格提取器，支持 .xlsx 与旧版 .xls。
// 每张工作表产出一个 Segment：首行视为表头，其余行序列化为
// "表头1: 值1, 表头2: 值2, ..."，行间以换行拼接；缺失单元格按空串处理。
type ExcelExtractor struct{}

// NewExcelExtractor 创建电子表格提取器
func NewExcelExtractor() *ExcelExtractor {
	return &ExcelExtractor{}
}

// Load 解析电子表格文件，序列化结果为空白的工作表被跳过
func (e *ExcelExtractor) Load(path string) ([]Segment, error) {
	if strings.ToLower(filepath.Ext(path)) == ".xls" {
		return e.loadLegacy(path)
	}
	return e.loadXLSX(path)
}

func (e *ExcelExtractor) loadXLSX(path string) ([]Segment, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开 Excel 文件失败: %w", err)
	}
	defer f.Close()

	var segments []Segment
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("读取工作表 %s 失败: %w", sheetName, err)
		}

		if seg, ok := buildSheetSegment(sheetName, rows); ok {
			segments = append(segments, seg)
		}
	}

	return segments, nil
}

func (e *ExcelExtractor) loadLegacy(path string) ([]Segment, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("打开 XLS 文件失败: %w", err)
	}

	var segments []Segment
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}

		var rows [][]string
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			var cells []string
			for c := 0; c <= row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, cells)
		}

		if seg, ok := buildSheetSegment(sheet.Name, rows); ok {
			segments = append(segments, seg)
		}
	}

	return segments, nil
}

// buildSheetSegment 将一张工作表的行数据序列化为 Segment。
// 首行作为表头；数据行不足表头长度时缺失值归一为空串。
func buildSheetSegment(sheetName string, rows [][]string) (Segment, bool) {
	if len(rows) == 0 {
		return Segment{}, false
	}

	headers := rows[0]
	lines := make([]string, 0, len(rows)-1)

	for _, row := range rows[1:] {
		pairs := make([]string, 0, len(headers))
		for i, h := range headers {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			pairs = append(pairs, fmt.Sprintf("%s: %s", h, val))
		}
		lines = append(lines, strings.Join(pairs, ", "))
	}

	text := strings.Join(lines, "\n")
	if strings.TrimSpace(text) == "" {
		return Segment{}, false
	}

	return Segment{
		Text: text,
		Metadata: map[string]string{
			MetaSheetName: sheetName,
		},
	}, true
}

// SupportedExtensions 支持的文件扩展名
func (e *ExcelExtractor) SupportedExtensions() []string {
	return []string{".xlsx", ".xls"}
}

// CanExtract 检查是否可以解析指定扩展名的文件
func (e *ExcelExtractor) CanExtract(extension string) bool {
	return canExtract(extension, e.SupportedExtensions())
}
