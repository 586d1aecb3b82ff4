package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// --- Fakes shared by the pipeline tests ---

// topics are the axes of fakeEmbedder vectors.
var topics = []string{"refund", "shipping", "warranty", "invoice"}

// fakeEmbedder embeds text as keyword counts over topics, plus a bias
// dimension so no vector has zero norm.
type fakeEmbedder struct {
	mu    sync.Mutex
	model string
	err   error
	calls int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{model: "fake-embed"}
}

func (f *fakeEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(topics)+1)
	for i, t := range topics {
		vec[i] = float32(strings.Count(lower, t))
	}
	vec[len(topics)] = 0.1
	return vec
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int              { return len(topics) + 1 }
func (f *fakeEmbedder) ModelName() string            { return f.model }
func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (f *fakeEmbedder) Close() error                 { return nil }

// fakeReranker scores a passage by how many query words it contains.
type fakeReranker struct {
	err    error
	scores []float64
}

func (f *fakeReranker) Score(_ context.Context, query string, passages []string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.scores != nil {
		return f.scores, nil
	}
	words := strings.Fields(strings.ToLower(query))
	out := make([]float64, len(passages))
	for i, p := range passages {
		lower := strings.ToLower(p)
		for _, w := range words {
			if strings.Contains(lower, strings.Trim(w, "?.,")) {
				out[i]++
			}
		}
	}
	return out, nil
}

func (f *fakeReranker) ModelName() string { return "fake-rerank" }
func (f *fakeReranker) Close() error      { return nil }

// fakeLLM records the last request and returns a canned reply.
type fakeLLM struct {
	reply     string
	truncated bool
	err       error
	calls     int
	req       driven.CompletionRequest
}

func (f *fakeLLM) Complete(_ context.Context, req driven.CompletionRequest) (driven.Completion, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return driven.Completion{}, f.err
	}
	return driven.Completion{Text: f.reply, Truncated: f.truncated}, nil
}

func (f *fakeLLM) ModelName() string            { return "fake-llm" }
func (f *fakeLLM) Ping(_ context.Context) error { return nil }
func (f *fakeLLM) Close() error                 { return nil }

// fakeOCR returns the text registered for each image path.
type fakeOCR struct {
	texts map[string]string
	err   error
	calls int
}

func (f *fakeOCR) Recognize(_ context.Context, images []string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = f.texts[filepath.Base(img)]
	}
	return out, nil
}

func (f *fakeOCR) Name() string { return "fake-ocr" }
func (f *fakeOCR) Close() error { return nil }

// fakeRasterizer renders page images named <base>-<n>.png. Page counts are
// keyed by full path or base name.
type fakeRasterizer struct {
	pages map[string]int
	err   error
	calls []string
}

func (f *fakeRasterizer) Rasterize(_ context.Context, pdfPath string, _ int, outDir string) ([]string, error) {
	f.calls = append(f.calls, pdfPath)
	if f.err != nil {
		return nil, f.err
	}
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	var out []string
	n, ok := f.pages[pdfPath]
	if !ok {
		n = f.pages[filepath.Base(pdfPath)]
	}
	for i := 1; i <= n; i++ {
		out = append(out, filepath.Join(outDir, fmt.Sprintf("%s-%d.png", base, i)))
	}
	return out, nil
}

// fakeTextLayer serves page text by full path or base name.
type fakeTextLayer struct {
	pages map[string][]string
	calls []string
}

func (f *fakeTextLayer) ReadPages(_ context.Context, path string) ([]domain.PageText, error) {
	f.calls = append(f.calls, path)
	texts, ok := f.pages[path]
	if !ok {
		texts, ok = f.pages[filepath.Base(path)]
	}
	if !ok {
		return nil, errors.New("malformed PDF")
	}
	out := make([]domain.PageText, len(texts))
	for i, t := range texts {
		out[i] = domain.PageText{Number: i + 1, Text: t}
	}
	return out, nil
}

func (f *fakeTextLayer) PageCount(path string) (int, error) {
	return len(f.pages[path]), nil
}

// fakeDictionary knows a fixed set of words.
type fakeDictionary map[string]bool

func newFakeDictionary(text string) fakeDictionary {
	d := fakeDictionary{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		d[strings.Trim(w, ".,?!:;")] = true
	}
	return d
}

func (d fakeDictionary) Contains(word string) bool { return d[word] }
func (d fakeDictionary) Size() int                 { return len(d) }

// fakeChunker emits one chunk per tagged page.
type fakeChunker struct {
	err error
}

func (f *fakeChunker) Chunk(_ context.Context, text, source string) ([]domain.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Chunk
	for _, page := range strings.Split(text, "--- PDF:") {
		if i := strings.Index(page, "---\n"); i >= 0 {
			page = page[i+4:]
		}
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		out = append(out, domain.Chunk{
			ID:       fmt.Sprintf("%s#%d", source, len(out)),
			Source:   source,
			Position: len(out),
			Content:  page,
		})
	}
	return out, nil
}

// fakeUploader accepts PDFs and PNGs without touching disk.
type fakeUploader struct {
	limits domain.UploadLimits
}

func (f *fakeUploader) Accept(_ context.Context, file domain.UploadFile, tenantDir string) (domain.Document, error) {
	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".pdf", ".png":
	default:
		return domain.Document{}, fmt.Errorf("%s: unsupported file type", file.Name)
	}
	return domain.Document{
		Name: file.Name,
		Path: filepath.Join(tenantDir, file.Name),
		Kind: domain.KindForPath(file.Name),
	}, nil
}

func (f *fakeUploader) Limits() domain.UploadLimits { return f.limits }

// ocrLoaderFor wraps an engine, or a load failure, in a loader.
func ocrLoaderFor(engine driven.OCREngine, err error) OCRLoader {
	return func(context.Context) (driven.OCREngine, error) {
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
}

func rerankerLoaderFor(r driven.Reranker) RerankerLoader {
	return func(context.Context) (driven.Reranker, error) { return r, nil }
}
