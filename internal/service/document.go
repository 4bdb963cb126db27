package service

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"docshare/internal/audit"
	"docshare/internal/auth"
	"docshare/internal/model"
	"docshare/internal/repository"
	"docshare/internal/storage"
)

// DefaultSignedURLTTL is how long presigned download links stay valid.
const DefaultSignedURLTTL = time.Hour

// UploadInput is a file about to be stored.
type UploadInput struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	Size        int64
	Visibility  model.Visibility
}

// Download is an open stream of a stored document. The caller must close Body.
type Download struct {
	Document    model.Document
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// SignedLink is a presigned, time-limited download URL.
type SignedLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// DocumentService defines the document use cases. Every method acts on behalf
// of an explicit caller.
type DocumentService interface {
	// Upload validates, stores and records a new document owned by actor.
	// The stored object is removed again if the metadata insert fails.
	Upload(ctx context.Context, actor auth.Principal, in UploadInput) (*model.Document, error)

	// Search returns one page of the documents actor may see under p.Filter.
	// On failure the result is an empty page, never nil.
	Search(ctx context.Context, actor auth.Principal, p SearchParams) (*SearchResult, error)

	// Get returns a document actor may read.
	Get(ctx context.Context, actor auth.Principal, id string) (*model.Document, error)

	// Download opens the stored bytes of a document actor may read.
	Download(ctx context.Context, actor auth.Principal, id string) (*Download, error)

	// SignedLink returns a presigned URL for a document actor may read.
	SignedLink(ctx context.Context, actor auth.Principal, id string) (*SignedLink, error)

	// Delete removes a document owned by actor, or any document if actor is an admin.
	Delete(ctx context.Context, actor auth.Principal, id string, confirmed bool) error
}

type documentService struct {
	store     storage.Storage
	repo      repository.DocumentRepository
	shares    repository.ShareRepository
	validator UploadValidator
	audit     audit.Recorder
	log       logrus.FieldLogger
	http      *http.Client
	urlTTL    time.Duration
	now       func() time.Time
}

type DocumentOption func(*documentService)

func WithSignedURLTTL(d time.Duration) DocumentOption {
	return func(s *documentService) {
		if d > 0 {
			s.urlTTL = d
		}
	}
}

// WithHTTPClient replaces the client used to fetch presigned URLs.
func WithHTTPClient(c *http.Client) DocumentOption {
	return func(s *documentService) { s.http = c }
}

func WithDocumentLogger(l logrus.FieldLogger) DocumentOption {
	return func(s *documentService) { s.log = l }
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(
	store storage.Storage,
	repo repository.DocumentRepository,
	shares repository.ShareRepository,
	validator UploadValidator,
	rec audit.Recorder,
	opts ...DocumentOption,
) DocumentService {
	s := &documentService{
		store:     store,
		repo:      repo,
		shares:    shares,
		validator: validator,
		audit:     rec,
		log:       logrus.StandardLogger(),
		http:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport), Timeout: 5 * time.Minute},
		urlTTL:    DefaultSignedURLTTL,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *documentService) Upload(ctx context.Context, actor auth.Principal, in UploadInput) (*model.Document, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if in.Reader == nil {
		return nil, ErrReaderNil
	}
	if in.Visibility == "" {
		in.Visibility = model.VisibilityPrivate
	}
	if !in.Visibility.Valid() {
		return nil, invalid("INVALID_VISIBILITY", "visibility must be public or private")
	}

	verdict, err := s.validator.Validate(ctx, actor, UploadRequest{
		FileName: in.FileName,
		FileSize: in.Size,
		FileType: in.ContentType,
	})
	if err != nil {
		return nil, err
	}

	name := verdict.SanitizedFileName
	key := storage.ObjectKey(actor.UserID, name)

	objInfo, err := s.store.Put(ctx, key, in.Reader, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: in.ContentType,
		Metadata: map[string]string{
			"original-filename": name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	now := s.now().UTC()
	doc := &model.Document{
		ID:          uuid.NewString(),
		Name:        name,
		StoragePath: objInfo.Key,
		Size:        in.Size,
		ContentType: in.ContentType,
		Visibility:  in.Visibility,
		OwnerID:     actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	s.audit.Record(ctx, audit.Event{
		Action:       audit.ActionDocumentUpload,
		UserID:       actor.UserID,
		ResourceType: audit.ResourceDocument,
		ResourceID:   stored.ID,
		Details: map[string]any{
			"fileName":   stored.Name,
			"fileSize":   stored.Size,
			"fileType":   stored.ContentType,
			"visibility": string(stored.Visibility),
		},
	})
	return stored, nil
}

func (s *documentService) Get(ctx context.Context, actor auth.Principal, id string) (*model.Document, error) {
	return s.readable(ctx, actor, id)
}

// readable loads a live document and checks that actor may read it. Documents
// the caller cannot read are reported as not found.
func (s *documentService) readable(ctx context.Context, actor auth.Principal, id string) (*model.Document, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnedBy(actor.UserID) || doc.Visibility == model.VisibilityPublic || actor.IsAdmin() {
		return doc, nil
	}
	shared, err := s.shares.Exists(ctx, doc.ID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("check share: %w", err)
	}
	if !shared {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (s *documentService) find(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) SignedLink(ctx context.Context, actor auth.Principal, id string) (*SignedLink, error) {
	doc, err := s.readable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.stat(ctx, doc); err != nil {
		return nil, err
	}
	u, err := s.store.PresignGet(ctx, doc.StoragePath, s.urlTTL, doc.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: presign: %v", ErrStorageUnavailable, err)
	}
	return &SignedLink{URL: u, ExpiresAt: s.now().UTC().Add(s.urlTTL)}, nil
}

func (s *documentService) stat(ctx context.Context, doc *model.Document) (storage.ObjectInfo, error) {
	info, err := s.store.Stat(ctx, doc.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return storage.ObjectInfo{}, ErrObjectMissing
		}
		return storage.ObjectInfo{}, fmt.Errorf("%w: stat: %v", ErrStorageUnavailable, err)
	}
	return info, nil
}

// Download checks access, confirms the object exists, then fetches it through
// a presigned URL. The first byte is read before returning so an empty object
// is reported instead of streamed.
func (s *documentService) Download(ctx context.Context, actor auth.Principal, id string) (*Download, error) {
	doc, err := s.readable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	info, err := s.stat(ctx, doc)
	if err != nil {
		return nil, err
	}
	u, err := s.store.PresignGet(ctx, doc.StoragePath, s.urlTTL, doc.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: presign: %v", ErrStorageUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch: %v", ErrStorageUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrObjectMissing
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: fetch status %d", ErrStorageUnavailable, resp.StatusCode)
	}

	br := bufio.NewReader(resp.Body)
	if _, err := br.Peek(1); err != nil {
		resp.Body.Close()
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyPayload
		}
		return nil, fmt.Errorf("%w: read: %v", ErrStorageUnavailable, err)
	}

	contentType := doc.ContentType
	if contentType == "" {
		contentType = info.ContentType
	}

	s.audit.Record(ctx, audit.Event{
		Action:       audit.ActionDocumentDownload,
		UserID:       actor.UserID,
		ResourceType: audit.ResourceDocument,
		ResourceID:   doc.ID,
		Details: map[string]any{
			"documentId": doc.ID,
			"fileName":   doc.Name,
			"fileSize":   doc.Size,
		},
	})

	return &Download{
		Document:    *doc,
		Body:        readCloser{Reader: br, Closer: resp.Body},
		ContentType: contentType,
		Size:        info.Size,
	}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// Delete hides the document first, then removes the object and finally the
// row. If either cleanup step fails the row stays soft-deleted and the
// reconciler finishes the job; the caller still sees a completed delete.
func (s *documentService) Delete(ctx context.Context, actor auth.Principal, id string, confirmed bool) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	if id == "" {
		return ErrIDRequired
	}
	doc, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	owner := doc.OwnedBy(actor.UserID)
	if !owner && !actor.IsAdmin() {
		return ErrPermissionDenied
	}
	if !confirmed {
		return ErrConfirmationRequired
	}

	if err := s.repo.MarkDeleted(ctx, doc.ID, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("mark deleted: %w", err)
	}

	entry := s.log.WithFields(logrus.Fields{"component": "documents", "document_id": doc.ID})
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		entry.WithError(err).Warn("storage delete failed, left for reconciler")
	} else if err := s.repo.Delete(ctx, doc.ID); err != nil {
		entry.WithError(err).Warn("row delete failed, left for reconciler")
	}

	s.audit.Record(ctx, audit.Event{
		Action:       audit.ActionDocumentDelete,
		UserID:       actor.UserID,
		ResourceType: audit.ResourceDocument,
		ResourceID:   doc.ID,
		Details: map[string]any{
			"documentId": doc.ID,
			"fileName":   doc.Name,
			"deletedBy":  actor.UserID,
			"viaAdmin":   actor.IsAdmin() && !owner,
		},
	})
	return nil
}
