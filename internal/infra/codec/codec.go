// Package codec implements the JSON import and export of the address collection.
package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"regexp"
	"strings"

	"addrstore/config"
	"addrstore/internal/domain/entity"
	domainerrors "addrstore/internal/domain/errors"
	"addrstore/internal/domain/repository"
	"addrstore/internal/domain/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const maxStoredSkips = 100

// Matches a comma followed only by whitespace before a closing bracket.
var trailingComma = regexp.MustCompile(`,(\s*[\]}])`)

// Params defines the dependencies of the codec
type Params struct {
	fx.In

	Repository repository.AddressRepository
	Logger     *slog.Logger
	Config     *config.Config `optional:"true"`
}

type addressCodec struct {
	repo     repository.AddressRepository
	validate *validator.Validate
	logger   *slog.Logger
	maxBytes int64
}

// New creates the JSON codec
func New(params Params) service.AddressCodec {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var maxBytes int64
	if params.Config != nil {
		maxBytes = params.Config.Import.MaxBytes
	}

	return &addressCodec{
		repo:     params.Repository,
		validate: validate,
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// Export renders every address, in ID order, as a two-space indented array
func (c *addressCodec) Export(ctx context.Context) ([]byte, error) {
	addresses, err := c.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.MarshalIndent(addresses, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode addresses")
	}

	c.logger.DebugContext(ctx, "Addresses exported", slog.Int("count", len(addresses)))

	return payload, nil
}

// Import parses payload and bulk-inserts its valid rows in one batch
func (c *addressCodec) Import(ctx context.Context, payload []byte) (*service.ImportReport, error) {
	if c.maxBytes > 0 && int64(len(payload)) > c.maxBytes {
		return nil, domainerrors.ErrInvalidArgument.WithDetails(
			fmt.Sprintf("import payload is %d bytes, limit is %d", len(payload), c.maxBytes))
	}

	elements, err := splitArray(repairTrailingCommas(payload))
	if err != nil {
		return nil, err
	}

	rep := newReport(len(elements))
	drafts := make([]entity.AddressDraft, 0, len(elements))
	for i, element := range elements {
		var row service.ImportRow
		if err := json.Unmarshal(element, &row); err != nil {
			c.skip(ctx, rep, i, "not an address object: "+err.Error())

			continue
		}
		if draft, ok := c.accept(ctx, rep, i, row); ok {
			drafts = append(drafts, draft)
		}
	}

	return c.insert(ctx, rep, drafts)
}

// ImportRows filters and bulk-inserts already-decoded rows
func (c *addressCodec) ImportRows(ctx context.Context, rows []service.ImportRow) (*service.ImportReport, error) {
	rep := newReport(len(rows))
	drafts := make([]entity.AddressDraft, 0, len(rows))
	for i, row := range rows {
		if draft, ok := c.accept(ctx, rep, i, row); ok {
			drafts = append(drafts, draft)
		}
	}

	return c.insert(ctx, rep, drafts)
}

type report struct {
	*service.ImportReport
}

func newReport(received int) report {
	return report{&service.ImportReport{
		BatchID:  uuid.New(),
		Received: received,
		Skipped:  []service.SkippedRow{},
		IDs:      []uint64{},
	}}
}

func (r report) skip(index int, reason string) {
	r.SkippedCount++
	if len(r.Skipped) < maxStoredSkips {
		r.Skipped = append(r.Skipped, service.SkippedRow{Index: index, Reason: reason})
	}
}

// accept validates one row and turns it into a draft.
func (c *addressCodec) accept(ctx context.Context, rep report, index int, row service.ImportRow) (entity.AddressDraft, bool) {
	if err := c.validate.Struct(row); err != nil {
		c.skip(ctx, rep, index, validationReason(err))

		return entity.AddressDraft{}, false
	}

	if row.HasStaleFormatting() {
		rep.Stale++
		c.logger.DebugContext(ctx, "Import row has stale formatted fields",
			slog.String("batchID", rep.BatchID.String()),
			slog.Int("index", index),
			slog.String("zipCode", row.ZipCode),
		)
	}

	return row.Draft(), true
}

func (c *addressCodec) skip(ctx context.Context, rep report, index int, reason string) {
	rep.skip(index, reason)
	c.logger.DebugContext(ctx, "Import row skipped",
		slog.String("batchID", rep.BatchID.String()),
		slog.Int("index", index),
		slog.String("reason", reason),
	)
}

func (c *addressCodec) insert(ctx context.Context, rep report, drafts []entity.AddressDraft) (*service.ImportReport, error) {
	logger := c.logger.With(slog.String("batchID", rep.BatchID.String()))

	if len(drafts) > 0 {
		inserted, err := c.repo.BulkInsert(ctx, drafts)
		if err != nil {
			logger.WarnContext(ctx, "Import rejected",
				slog.Int("received", rep.Received),
				slog.Any("error", err),
			)

			return nil, err
		}

		for _, address := range inserted {
			rep.IDs = append(rep.IDs, address.ID)
		}
		rep.Imported = len(inserted)
	}

	logger.InfoContext(ctx, "Addresses imported",
		slog.Int("received", rep.Received),
		slog.Int("imported", rep.Imported),
		slog.Int("skipped", rep.SkippedCount),
		slog.Int("stale", rep.Stale),
	)

	return rep.ImportReport, nil
}

func repairTrailingCommas(payload []byte) []byte {
	return bytes.TrimSpace(trailingComma.ReplaceAll(payload, []byte("$1")))
}

// splitArray returns the raw elements of a top-level JSON array.
func splitArray(payload []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))

	token, err := dec.Token()
	if err != nil {
		return nil, invalidFormat(err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '[' {
		return nil, domainerrors.ErrInvalidFormat.WithDetails("payload must be a JSON array")
	}

	elements := []json.RawMessage{}
	for dec.More() {
		var element json.RawMessage
		if err := dec.Decode(&element); err != nil {
			return nil, invalidFormat(err)
		}
		elements = append(elements, element)
	}

	// Closing bracket.
	if _, err := dec.Token(); err != nil {
		return nil, invalidFormat(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, domainerrors.ErrInvalidFormat.WithDetails("unexpected data after the array")
	}

	return elements, nil
}

func invalidFormat(err error) error {
	if errors.Is(err, io.EOF) {
		return domainerrors.ErrInvalidFormat.WithDetails("unexpected end of input")
	}

	return domainerrors.ErrInvalidFormat.WithDetails(err.Error())
}

func validationReason(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err.Error()
	}

	reasons := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		reasons = append(reasons, fieldErr.Field()+" is "+fieldErr.Tag())
	}

	return strings.Join(reasons, ", ")
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}

	return name
}
