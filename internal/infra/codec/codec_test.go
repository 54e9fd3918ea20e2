package codec_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"addrstore/config"
	"addrstore/internal/domain/entity"
	domainerrors "addrstore/internal/domain/errors"
	"addrstore/internal/domain/repository"
	"addrstore/internal/domain/service"
	"addrstore/internal/infra/codec"
	"addrstore/internal/infra/persistence/kv"
	"addrstore/internal/infra/persistence/storetest"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newCodec(t *testing.T, cfg *config.Config) (service.AddressCodec, repository.AddressRepository) {
	t.Helper()

	clk := clock.NewMock()
	clk.Set(start)
	logger := slog.New(slog.DiscardHandler)

	repo, err := kv.NewAddressRepository(kv.Params{Store: storetest.OpenPebble(t), Logger: logger, Clock: clk})
	require.NoError(t, err)

	return codec.New(codec.Params{Repository: repo, Logger: logger, Config: cfg}), repo
}

func count(t *testing.T, repo repository.AddressRepository) int {
	t.Helper()

	n, err := repo.Count(context.Background())
	require.NoError(t, err)

	return n
}

func TestExport_Empty(t *testing.T) {
	c, _ := newCodec(t, nil)

	payload, err := c.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(payload))
}

func TestExport_Format(t *testing.T) {
	c, repo := newCodec(t, nil)
	_, err := repo.Create(context.Background(), entity.AddressDraft{ZipCode: "01001000", Street: "Praça da Sé", State: "SP"})
	require.NoError(t, err)

	payload, err := c.Export(context.Background())
	require.NoError(t, err)

	text := string(payload)
	assert.True(t, strings.HasPrefix(text, "[\n  {\n    \"id\": 1,"), text)
	assert.Contains(t, text, `"zipCode": "01001000"`)
	assert.Contains(t, text, `"formattedZipCode": "01001-000"`)
	assert.Contains(t, text, `"createdAt": "2024-05-01T12:00:00Z"`)
	assert.Contains(t, text, `"aliases": []`)
}

func TestImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	source, sourceRepo := newCodec(t, nil)

	inactive := false
	_, err := sourceRepo.BulkInsert(ctx, []entity.AddressDraft{
		{ZipCode: "01001000", Type: "Praça", Street: "da Sé", Neighborhood: "Sé", City: "São Paulo", State: "SP", Aliases: []string{"Marco Zero"}},
		{ZipCode: "20040002", Type: "Avenida", Street: "Rio Branco", City: "Rio de Janeiro", State: "RJ", Complement: "lado par", Active: &inactive},
		{ZipCode: "70040010", Street: "Esplanada", City: "Brasília", State: "DF", CreatedAt: start.Add(-24 * time.Hour)},
	})
	require.NoError(t, err)

	payload, err := source.Export(ctx)
	require.NoError(t, err)

	target, targetRepo := newCodec(t, nil)
	report, err := target.Import(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Received)
	assert.Equal(t, 3, report.Imported)
	assert.Zero(t, report.SkippedCount)
	assert.Zero(t, report.Stale)

	want, err := sourceRepo.List(ctx)
	require.NoError(t, err)
	got, err := targetRepo.List(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(entity.Address{}, "ID")); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, count(t, sourceRepo), count(t, targetRepo))
}

func TestImport_DuplicateZipCodeInBatch(t *testing.T) {
	c, repo := newCodec(t, nil)

	_, err := c.Import(context.Background(), []byte(
		`[{"zipCode":"01001000","street":"A","state":"SP"}, {"zipCode":"01001000","street":"B","state":"SP"}]`))

	assert.ErrorIs(t, err, domainerrors.ErrDuplicateKey)
	assert.Zero(t, count(t, repo))
}

func TestImport_MissingRequiredFieldIsSkipped(t *testing.T) {
	c, repo := newCodec(t, nil)

	report, err := c.Import(context.Background(), []byte(`[{"street":"NoZip"}]`))

	require.NoError(t, err)
	assert.Zero(t, report.Imported)
	assert.Equal(t, 1, report.SkippedCount)
	assert.Equal(t, []service.SkippedRow{{Index: 0, Reason: "zipCode is required, state is required"}}, report.Skipped)
	assert.Zero(t, count(t, repo))
}

func TestImport_MalformedPayload(t *testing.T) {
	c, repo := newCodec(t, nil)

	tests := []struct {
		name    string
		payload string
	}{
		{name: "broken object", payload: "{not json"},
		{name: "object", payload: `{"zipCode":"01001000"}`},
		{name: "null", payload: "null"},
		{name: "empty", payload: "   "},
		{name: "unterminated array", payload: `[{"zipCode":"01001000","street":"A","state":"SP"}`},
		{name: "trailing data", payload: "[] []"},
		{name: "broken element", payload: `[{"zipCode":}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Import(context.Background(), []byte(tt.payload))
			assert.ErrorIs(t, err, domainerrors.ErrInvalidFormat)
		})
	}
	assert.Zero(t, count(t, repo))
}

func TestImport_TrailingCommasAreRepaired(t *testing.T) {
	c, repo := newCodec(t, nil)

	report, err := c.Import(context.Background(), []byte("\n[\n  {\"zipCode\":\"01001000\",\"street\":\"A\",\"state\":\"SP\",\"aliases\":[\"x\",],},\n]\n"))

	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, []uint64{1}, report.IDs)
	assert.Equal(t, 1, count(t, repo))
}

func TestImport_MixedRows(t *testing.T) {
	c, repo := newCodec(t, nil)

	report, err := c.Import(context.Background(), []byte(`[
		{"zipCode":"01001000","street":"A","state":"SP"},
		{"street":"NoZip","state":"SP"},
		42,
		{"zipCode":"02002000","street":"B","state":"SP","createdAt":"yesterday"},
		{"zipCode":"03003000","street":"C","state":"SP"}
	]`))

	require.NoError(t, err)
	assert.Equal(t, 5, report.Received)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 3, report.SkippedCount)

	indexes := make([]int, 0, len(report.Skipped))
	for _, skipped := range report.Skipped {
		indexes = append(indexes, skipped.Index)
	}
	assert.Equal(t, []int{1, 2, 3}, indexes)
	assert.Equal(t, 2, count(t, repo))
}

func TestImport_StaleFormattedFieldsAreRecomputed(t *testing.T) {
	ctx := context.Background()
	c, repo := newCodec(t, nil)

	report, err := c.Import(ctx, []byte(`[{
		"zipCode":"01001000","street":"A","neighborhood":"N","city":"C","state":"SP",
		"formattedZipCode":"99999-999","formattedAddress":"somewhere else"
	}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stale)

	got, found, err := repo.FindByID(ctx, report.IDs[0])
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "01001-000", got.FormattedZipCode)
	assert.Equal(t, "A, N, C - SP", got.FormattedAddress)
}

func TestImport_PayloadLimit(t *testing.T) {
	cfg := &config.Config{}
	cfg.Import.MaxBytes = 8
	c, _ := newCodec(t, cfg)

	_, err := c.Import(context.Background(), []byte(`[{"zipCode":"01001000"}]`))
	assert.ErrorIs(t, err, domainerrors.ErrInvalidArgument)
}

func TestImportRows(t *testing.T) {
	c, repo := newCodec(t, nil)

	report, err := c.ImportRows(context.Background(), []service.ImportRow{
		{ZipCode: "01001000", Street: "A", State: "SP"},
		{ZipCode: "02002000", Street: "", State: "SP"},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, []service.SkippedRow{{Index: 1, Reason: "street is required"}}, report.Skipped)
	assert.NotEqual(t, uuid.Nil, report.BatchID)
	assert.Equal(t, 1, count(t, repo))
}
