package documents

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"cashdesk/internal/core/apperror"
	"cashdesk/internal/core/entity"
	"cashdesk/internal/core/id"
	"cashdesk/internal/core/numerator"
	"cashdesk/internal/domain"
	"cashdesk/internal/domain/audit"
)

type fakeTxManager struct {
	calls int
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type fakeRepo struct {
	mu        sync.Mutex
	docs      map[id.ID]*entity.CashDocument
	order     []id.ID
	createErr error
	emailed   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{docs: make(map[id.ID]*entity.CashDocument)}
}

func (r *fakeRepo) Create(_ context.Context, doc *entity.CashDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *doc
	r.docs[doc.ID] = &cp
	r.order = append(r.order, doc.ID)
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, docID id.ID) (*entity.CashDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("document", docID.String())
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeRepo) List(_ context.Context, filter domain.ListFilter) (domain.ListResult[*entity.CashDocument], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := domain.ListResult[*entity.CashDocument]{Limit: filter.Limit, Offset: filter.Offset}
	for i := len(r.order) - 1; i >= 0; i-- {
		cp := *r.docs[r.order[i]]
		result.Items = append(result.Items, &cp)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (r *fakeRepo) MarkEmailed(_ context.Context, doc *entity.CashDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.docs[doc.ID]
	if !ok {
		return apperror.NewNotFound("document", doc.ID.String())
	}
	stored.EmailedAt = doc.EmailedAt
	stored.EmailedTo = doc.EmailedTo
	r.emailed++
	return nil
}

type fakeAttachments struct {
	byDoc map[id.ID][]entity.Attachment
}

func newFakeAttachments() *fakeAttachments {
	return &fakeAttachments{byDoc: make(map[id.ID][]entity.Attachment)}
}

func (f *fakeAttachments) Create(_ context.Context, a *entity.Attachment) error {
	f.byDoc[a.DocumentID] = append(f.byDoc[a.DocumentID], *a)
	return nil
}

func (f *fakeAttachments) ListByDocuments(_ context.Context, docIDs []id.ID) (map[id.ID][]entity.Attachment, error) {
	out := make(map[id.ID][]entity.Attachment)
	for _, docID := range docIDs {
		if list, ok := f.byDoc[docID]; ok {
			out[docID] = list
		}
	}
	return out, nil
}

type fakeObjects struct {
	objects map[string][]byte
	err     error
}

func (f *fakeObjects) Put(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	if f.err != nil {
		return f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = data
	return nil
}

type fakeRenderer struct {
	last Printable
}

func (f *fakeRenderer) RenderPDF(_ context.Context, p Printable) ([]byte, error) {
	f.last = p
	return []byte("%PDF-1.4 " + p.Number), nil
}

type fakeMailer struct {
	sent []Email
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type auditCall struct {
	entityType string
	entityID   id.ID
	action     audit.Action
	changes    map[string]any
}

type fakeAudit struct {
	calls []auditCall
}

func (f *fakeAudit) LogChange(_ context.Context, entityType string, entityID id.ID, action audit.Action, changes map[string]any) error {
	f.calls = append(f.calls, auditCall{entityType, entityID, action, changes})
	return nil
}

// countingAllocator hands out contiguous numbers per key like the real allocator.
func countingAllocator() (*numerator.MockAllocator, *int) {
	var mu sync.Mutex
	calls := 0
	seqs := make(map[numerator.Key]int64)
	return &numerator.MockAllocator{
		AllocateFunc: func(_ context.Context, docType numerator.DocType, date time.Time) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			key, err := numerator.KeyFor(docType, date)
			if err != nil {
				return "", err
			}
			seqs[key]++
			return numerator.Format(key, seqs[key]), nil
		},
		LastIssuedFunc: func(_ context.Context, docType numerator.DocType, year int) (int64, error) {
			mu.Lock()
			defer mu.Unlock()
			return seqs[numerator.Key{DocType: docType, Year: year}], nil
		},
	}, &calls
}

var errInsert = errors.New("insert failed")
