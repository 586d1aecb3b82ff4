package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

const collectionDir = "/uploads/shared/acme/20260504_100000/"

func newTestCollection(t *testing.T) (*CollectionService, *KnowledgeBaseService) {
	t.Helper()
	kb, _, _ := newTestKB(t)
	layer := &fakeTextLayer{pages: map[string][]string{
		collectionDir + "refunds.pdf":  {policyText},
		collectionDir + "shipping.pdf": {shippingText},
	}}
	ingest := NewIngestService(newTestExtractor(layer, &fakeRasterizer{}, &fakeOCR{}), &fakeChunker{}, kb)
	svc := NewCollectionService(&fakeUploader{limits: domain.UploadLimits{MaxFiles: 3}}, kb, ingest, "/uploads")
	svc.now = func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }
	return svc, kb
}

func TestCollection_AddGrowsSharedKnowledgeBase(t *testing.T) {
	ctx := context.Background()
	svc, kb := newTestCollection(t)

	report, err := svc.Add(ctx, admin, upload("refunds.pdf", "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Indexed)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, "notes.txt", report.Rejected[0].Name)

	_, err = svc.Add(ctx, admin, upload("shipping.pdf"))
	require.NoError(t, err)

	h, err := kb.GetOrCreate(ctx, admin.TenantKey())
	require.NoError(t, err)
	info, err := kb.Info(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, []string{"refunds.pdf", "shipping.pdf"}, info.Sources)
}

func TestCollection_RequiresAdmin(t *testing.T) {
	svc, _ := newTestCollection(t)
	_, err := svc.Add(context.Background(), alice, upload("refunds.pdf"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCollection_Limits(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCollection(t)

	_, err := svc.Add(ctx, admin, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Add(ctx, admin, upload("a.pdf", "b.pdf", "c.pdf", "d.pdf"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	report, err := svc.Add(ctx, admin, upload("a.docx"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	require.NotNil(t, report)
	assert.Len(t, report.Rejected, 1)
}
