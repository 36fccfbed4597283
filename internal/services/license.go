package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/content"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/keys"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/metrics"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/txn"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/vocab"
)

const (
	ReasonNoTrail       = "No trail found."
	ReasonNoPermissive  = "No license with permissive uses found."
	ReasonNoUsesGranted = "Most recent license permits no uses."
)

// TransactionBuilder signs framed contents into a ledger transaction.
type TransactionBuilder interface {
	Build(owner model.Owner, assetRef *string, contents []byte, userSignature string, signer *keys.Signer) (*model.Transaction, error)
}

// TransactionWriter submits transactions in per-owner order.
type TransactionWriter interface {
	Submit(ctx context.Context, owner model.Owner, t *model.Transaction) error
}

// LedgerReader reads ledger state.
type LedgerReader interface {
	Metadata(ctx context.Context, owner model.Owner) (*model.Metadata, error)
	Block(ctx context.Context, owner model.Owner, blockID string) (*model.Block, error)
}

// CreateTitleRequest describes the content being titled.
type CreateTitleRequest struct {
	Ptr         string
	Origin      string
	Tags        []string
	Description *string
	Signature   string
}

// LicenseUse groups use cases with the destinations they apply to.
// Destinations are accepted but not recorded on the ledger.
type LicenseUse struct {
	UseCases     []string
	Destinations []string
}

// CreateLicenseRequest creates a title and the license that governs it.
type CreateLicenseRequest struct {
	Ptr         string
	Origin      string
	Tags        []string
	Uses        []LicenseUse
	Terms       string
	Description *string
	Expiry      *time.Time
	Signature   string
}

// LicenseService writes titles and licenses and verifies an owner's most
// recent license.
type LicenseService struct {
	builder TransactionBuilder
	writer  TransactionWriter
	reader  LedgerReader
	log     zerolog.Logger
}

func NewLicenseService(builder TransactionBuilder, writer TransactionWriter, reader LedgerReader, log zerolog.Logger) *LicenseService {
	return &LicenseService{builder: builder, writer: writer, reader: reader, log: log}
}

func (r *CreateTitleRequest) validate() error {
	switch {
	case r.Ptr == "":
		return fmt.Errorf("%w: ptr is required", model.ErrBadRequest)
	case r.Origin == "":
		return fmt.Errorf("%w: origin is required", model.ErrBadRequest)
	case r.Signature == "":
		return fmt.Errorf("%w: signature is required", model.ErrBadRequest)
	}
	return nil
}

func (r *CreateLicenseRequest) validate() error {
	title := CreateTitleRequest{Ptr: r.Ptr, Origin: r.Origin, Signature: r.Signature}
	if err := title.validate(); err != nil {
		return err
	}
	if r.Terms == "" {
		return fmt.Errorf("%w: terms is required", model.ErrBadRequest)
	}
	return nil
}

// CreateTitle writes a single title transaction.
func (s *LicenseService) CreateTitle(ctx context.Context, owner model.Owner, signer *keys.Signer, req CreateTitleRequest) (res *model.CreateResult, err error) {
	defer func() { metrics.CreatesTotal.WithLabelValues("title", metrics.Result(err)).Inc() }()
	if err := req.validate(); err != nil {
		return nil, err
	}
	t, err := s.submitTitle(ctx, owner, signer, req)
	if err != nil {
		return nil, err
	}
	return &model.CreateResult{ID: t.ID, Timestamp: t.Timestamp, Signature: t.AppSignature}, nil
}

// Create writes the title and then the license referencing it. The first
// failure aborts; a title that was already submitted is not withdrawn.
func (s *LicenseService) Create(ctx context.Context, owner model.Owner, signer *keys.Signer, req CreateLicenseRequest) (res *model.CreateResult, err error) {
	defer func() { metrics.CreatesTotal.WithLabelValues("license", metrics.Result(err)).Inc() }()
	if err := req.validate(); err != nil {
		return nil, err
	}

	title, err := s.submitTitle(ctx, owner, signer, CreateTitleRequest{
		Ptr: req.Ptr, Origin: req.Origin, Tags: req.Tags, Description: req.Description, Signature: req.Signature,
	})
	if err != nil {
		return nil, err
	}

	var uses []string
	for _, u := range req.Uses {
		uses = append(uses, u.UseCases...)
	}
	canonical := vocab.NewUseCases(uses)
	for _, u := range canonical {
		if u.IsCustom() {
			metrics.CustomVocabularyTotal.WithLabelValues("usecase").Inc()
		}
	}
	lic := content.LicenseContents{
		Uses:        canonical,
		Terms:       req.Terms,
		Description: req.Description,
		Expiry:      req.Expiry,
	}
	frame, err := lic.EncodeForLedger()
	if err != nil {
		return nil, err
	}
	t, err := s.builder.Build(owner, &title.ID, frame, req.Signature, signer)
	if err != nil {
		return nil, fmt.Errorf("build license transaction: %w", err)
	}
	if err := s.writer.Submit(ctx, owner, t); err != nil {
		return nil, err
	}
	s.log.Info().Str("owner", owner.String()).Str("title", title.ID).Str("license", t.ID).Msg("license submitted")
	return &model.CreateResult{ID: t.ID, Timestamp: t.Timestamp, Signature: t.AppSignature}, nil
}

func (s *LicenseService) submitTitle(ctx context.Context, owner model.Owner, signer *keys.Signer, req CreateTitleRequest) (*model.Transaction, error) {
	tags := vocab.NewTags(req.Tags)
	for _, tag := range tags {
		if tag.IsCustom() {
			metrics.CustomVocabularyTotal.WithLabelValues("tag").Inc()
		}
	}
	title := content.TitleContents{
		Ptr:         req.Ptr,
		Origin:      req.Origin,
		Tags:        tags,
		Description: req.Description,
	}
	frame, err := title.EncodeForLedger()
	if err != nil {
		return nil, err
	}
	t, err := s.builder.Build(owner, nil, frame, req.Signature, signer)
	if err != nil {
		return nil, fmt.Errorf("build title transaction: %w", err)
	}
	if err := s.writer.Submit(ctx, owner, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Verify reports whether the owner's most recent license grants any use.
// Blocks are scanned newest first and transactions within a block newest
// first; unreadable blocks and undecodable transactions are skipped.
func (s *LicenseService) Verify(ctx context.Context, owner model.Owner) *model.VerifyResult {
	res, scanned := s.verify(ctx, owner)
	metrics.VerificationsTotal.WithLabelValues(metrics.Bool(res.Verified)).Inc()
	metrics.VerifyTransactionsScanned.Observe(float64(scanned))
	return res
}

func (s *LicenseService) verify(ctx context.Context, owner model.Owner) (*model.VerifyResult, int) {
	md, err := s.reader.Metadata(ctx, owner)
	if err != nil {
		s.log.Warn().Err(err).Str("owner", owner.String()).Msg("ledger metadata unavailable")
		return rejected(ReasonNoTrail), 0
	}
	if md == nil || len(md.Blocks) == 0 {
		return rejected(ReasonNoTrail), 0
	}

	scanned := 0
	for i := len(md.Blocks) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			break
		}
		blockID := md.Blocks[i]
		block, err := s.reader.Block(ctx, owner, blockID)
		if err != nil {
			metrics.SkippedRecordsTotal.WithLabelValues("block").Inc()
			s.log.Warn().Err(err).Str("owner", owner.String()).Str("block", blockID).Msg("skipping unreadable block")
			continue
		}
		for j := len(block.Transactions) - 1; j >= 0; j-- {
			scanned++
			t := &block.Transactions[j]
			lic, err := licenseOf(t)
			if err != nil {
				metrics.SkippedRecordsTotal.WithLabelValues("transaction").Inc()
				s.log.Warn().Err(err).Str("owner", owner.String()).Str("txn", t.ID).Msg("skipping undecodable transaction")
				continue
			}
			if lic == nil {
				continue
			}
			if lic.Permissive() {
				return &model.VerifyResult{Verified: true}, scanned
			}
			return rejected(ReasonNoUsesGranted), scanned
		}
	}
	return rejected(ReasonNoPermissive), scanned
}

// licenseOf returns nil without error for transactions that hold other
// content types.
func licenseOf(t *model.Transaction) (*content.LicenseContents, error) {
	frame, err := txn.Contents(t)
	if err != nil {
		return nil, fmt.Errorf("%w: contents: %v", content.ErrDecode, err)
	}
	var lic content.LicenseContents
	if err := lic.DecodeFromLedger(frame); err != nil {
		if errors.Is(err, content.ErrSchemaMismatch) {
			return nil, nil
		}
		return nil, err
	}
	return &lic, nil
}

func rejected(reason string) *model.VerifyResult {
	return &model.VerifyResult{Verified: false, Reason: &reason}
}
