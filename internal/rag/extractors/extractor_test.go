package extractors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryDefaults(t *testing.T) {
	r := NewRegistry()

	require.True(t, r.Supported("report.pdf"))
	require.True(t, r.Supported("data.xlsx"))
	require.True(t, r.Supported("legacy.xls"))
	require.True(t, r.Supported("UPPER.PDF"), "扩展名匹配大小写不敏感")

	require.False(t, r.Supported("notes.txt"))
	require.False(t, r.Supported("archive.zip"))
	require.False(t, r.Supported("noextension"))

	require.ElementsMatch(t, []string{".pdf", ".xlsx", ".xls"}, r.Extensions())
}

func TestRegistryLoadUnsupported(t *testing.T) {
	r := NewRegistry()

	_, err := r.Load("/tmp/file.txt")
	require.Error(t, err)
	require.Contains(t, err.Error(), ".txt")
}

type stubExtractor struct {
	loaded  []string
	segment Segment
}

func (s *stubExtractor) Load(path string) ([]Segment, error) {
	s.loaded = append(s.loaded, path)
	return []Segment{s.segment}, nil
}

func (s *stubExtractor) SupportedExtensions() []string { return []string{".stub"} }

func (s *stubExtractor) CanExtract(ext string) bool { return ext == ".stub" }

func TestRegistryDispatch(t *testing.T) {
	stub := &stubExtractor{segment: Segment{Text: "hello"}}
	r := &Registry{}
	r.Register(stub)

	segs, err := r.Load("/data/x.stub")
	require.NoError(t, err)
	require.Len(t, segs, 1)
	require.Equal(t, "hello", segs[0].Text)
	require.Equal(t, []string{"/data/x.stub"}, stub.loaded)
}

func TestCanExtractCaseInsensitive(t *testing.T) {
	require.True(t, canExtract(".PDF", []string{".pdf"}))
	require.True(t, canExtract(".Xlsx", []string{".xlsx", ".xls"}))
	require.False(t, canExtract(".doc", []string{".pdf"}))
}
