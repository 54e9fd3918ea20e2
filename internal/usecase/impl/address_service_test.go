package impl

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"addrstore/internal/domain/entity"
	domainerrors "addrstore/internal/domain/errors"
	"addrstore/internal/domain/service"
	mockRepo "addrstore/internal/mocks/repository"
	mockService "addrstore/internal/mocks/service"
	"addrstore/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/multierr"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type serviceFixture struct {
	service usecase.AddressUsecase
	repo    *mockRepo.MockAddressRepository
	codec   *mockService.MockAddressCodec
}

func createTestAddressService(t *testing.T) *serviceFixture {
	t.Helper()

	repo := mockRepo.NewMockAddressRepository(t)
	codec := mockService.NewMockAddressCodec(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &serviceFixture{
		service: NewAddressService(AddressServiceParams{AddressRepo: repo, Codec: codec, Logger: logger}),
		repo:    repo,
		codec:   codec,
	}
}

func strPtr(s string) *string { return &s }

func TestAddressService_GetAddress(t *testing.T) {
	fx := createTestAddressService(t)
	ctx := context.Background()
	expected := &entity.Address{ID: 7, ZipCode: "01001000"}

	fx.repo.EXPECT().FindByID(ctx, uint64(7)).Return(expected, true, nil)

	address, err := fx.service.GetAddress(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, expected, address)
}

func TestAddressService_GetAddress_NotFound(t *testing.T) {
	fx := createTestAddressService(t)
	ctx := context.Background()

	fx.repo.EXPECT().FindByID(ctx, uint64(9)).Return(nil, false, nil)

	address, err := fx.service.GetAddress(ctx, 9)
	assert.Nil(t, address)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Contains(t, err.Error(), "id 9")
}

func TestAddressService_StorageFailuresAreTranslated(t *testing.T) {
	fx := createTestAddressService(t)
	ctx := context.Background()
	cause := errors.New("disk on fire")

	fx.repo.EXPECT().List(ctx).Return(nil, cause)

	_, err := fx.service.ListAddresses(ctx)
	assert.ErrorIs(t, err, domainerrors.ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, domainerrors.KindUnavailable, domainerrors.KindOf(err))
}

func TestAddressService_CancellationStaysVisible(t *testing.T) {
	fx := createTestAddressService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fx.repo.EXPECT().Count(ctx).Return(0, errors.Wrap(context.Canceled, "view"))

	_, err := fx.service.CountAddresses(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, domainerrors.ErrUnavailable)
}

func TestAddressService_DomainErrorsPassThrough(t *testing.T) {
	fx := createTestAddressService(t)
	ctx := context.Background()
	duplicate := domainerrors.ErrDuplicateKey.WithDetails("01001000")

	fx.repo.EXPECT().Create(ctx, mock.AnythingOfType("entity.AddressDraft")).Return(nil, duplicate)

	_, err := fx.service.CreateAddress(ctx, &usecase.CreateAddressInput{ZipCode: "01001000"})
	assert.Same(t, duplicate, err)
}

func TestAddressService_CreateAddress(t *testing.T) {
	fx := createTestAddressService(t)
	ctx := context.Background()
	inactive := false
	input := &usecase.CreateAddressInput{
		ZipCode: "01001000",
		Street:  "Praça da Sé",
		State:   "SP",
		Aliases: []string{"Marco Zero"},
		Active:  &inactive,
	}

	fx.repo.EXPECT().
		Create(ctx, mock.MatchedBy(func(draft entity.AddressDraft) bool {
			return draft.ZipCode == "01001000" && draft.Active != nil && !*draft.Active && len(draft.Aliases) == 1
		})).
		Return(&entity.Address{ID: 1, ZipCode: "01001000"}, nil)

	address, err := fx.service.CreateAddress(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), address.ID)
}

func TestAddressService_CreateAddress_NilInput(t *testing.T) {
	fx := createTestAddressService(t)

	_, err := fx.service.CreateAddress(context.Background(), nil)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidArgument)
}

func TestAddressService_UpdateAddress(t *testing.T) {
	fx := createTestAddressService(t)
	ctx := context.Background()
	existing := &entity.Address{ID: 3, ZipCode: "01001000", Street: "Old", City: "São Paulo", Aliases: []string{"a"}, Active: true}
	aliases := []string{"b", "c"}
	inactive := false

	fx.repo.EXPECT().FindByID(ctx, uint64(3)).Return(existing, true, nil)
	fx.repo.EXPECT().
		Update(ctx, mock.AnythingOfType("*entity.Address")).
		RunAndReturn(func(_ context.Context, address *entity.Address) (*entity.Address, error) {
			return address, nil
		})

	updated, err := fx.service.UpdateAddress(ctx, 3, &usecase.UpdateAddressInput{
		Street:  strPtr("New"),
		Aliases: &aliases,
		Active:  &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Street)
	assert.Equal(t, "São Paulo", updated.City)
	assert.Equal(t, "01001000", updated.ZipCode)
	assert.Equal(t, []string{"b", "c"}, updated.Aliases)
	assert.False(t, updated.Active)

	aliases[0] = "mutated"
	assert.Equal(t, "b", updated.Aliases[0])
}

func TestAddressService_UpdateAddress_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing id", func(t *testing.T) {
		fx := createTestAddressService(t)
		_, err := fx.service.UpdateAddress(ctx, 0, &usecase.UpdateAddressInput{})
		assert.ErrorIs(t, err, domainerrors.ErrMissingIdentifier)
	})

	t.Run("nil input", func(t *testing.T) {
		fx := createTestAddressService(t)
		_, err := fx.service.UpdateAddress(ctx, 1, nil)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidArgument)
	})

	t.Run("unknown id", func(t *testing.T) {
		fx := createTestAddressService(t)
		fx.repo.EXPECT().FindByID(ctx, uint64(4)).Return(nil, false, nil)

		_, err := fx.service.UpdateAddress(ctx, 4, &usecase.UpdateAddressInput{Street: strPtr("x")})
		assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	})

	t.Run("zip code taken", func(t *testing.T) {
		fx := createTestAddressService(t)
		fx.repo.EXPECT().FindByID(ctx, uint64(5)).Return(&entity.Address{ID: 5, ZipCode: "01001000"}, true, nil)
		fx.repo.EXPECT().Update(ctx, mock.Anything).Return(nil, domainerrors.ErrDuplicateKey.WithDetails("02002000"))

		_, err := fx.service.UpdateAddress(ctx, 5, &usecase.UpdateAddressInput{ZipCode: strPtr("02002000")})
		assert.ErrorIs(t, err, domainerrors.ErrDuplicateKey)
	})
}

func TestAddressService_DeleteAddress(t *testing.T) {
	fx := createTestAddressService(t)
	ctx := context.Background()

	fx.repo.EXPECT().Delete(ctx, uint64(2)).Return(nil).Once()
	fx.repo.EXPECT().Delete(ctx, uint64(2)).Return(domainerrors.ErrNotFound.WithDetails("id 2")).Once()

	require.NoError(t, fx.service.DeleteAddress(ctx, 2))
	assert.ErrorIs(t, fx.service.DeleteAddress(ctx, 2), domainerrors.ErrNotFound)
}

func TestAddressService_ListAddressPage(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		count      int
		query      usecase.PageQuery
		wantPages  int
		wantLength int
	}{
		{name: "exact", count: 10, query: usecase.PageQuery{Page: 1, PageSize: 5}, wantPages: 2, wantLength: 5},
		{name: "partial last page", count: 11, query: usecase.PageQuery{Page: 3, PageSize: 5}, wantPages: 3, wantLength: 1},
		{name: "empty collection", count: 0, query: usecase.PageQuery{Page: 1, PageSize: 5}, wantPages: 0, wantLength: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := createTestAddressService(t)
			items := make([]*entity.Address, tt.wantLength)

			fx.repo.EXPECT().Count(ctx).Return(tt.count, nil)
			fx.repo.EXPECT().ListPage(ctx, tt.query.Page, tt.query.PageSize).Return(items, nil)

			page, err := fx.service.ListAddressPage(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.count, page.TotalCount)
			assert.Equal(t, tt.wantPages, page.TotalPages)
			assert.Len(t, page.Items, tt.wantLength)
			assert.Equal(t, tt.query.Page, page.Page)
		})
	}
}

func TestAddressService_ListAddressPage_InvalidQuery(t *testing.T) {
	fx := createTestAddressService(t)

	for _, query := range []usecase.PageQuery{{Page: 0, PageSize: 5}, {Page: 1, PageSize: 0}, {Page: -1, PageSize: -1}} {
		_, err := fx.service.ListAddressPage(context.Background(), query)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidArgument)
	}
}

func TestAddressService_Lookups(t *testing.T) {
	fx := createTestAddressService(t)
	ctx := context.Background()
	hit := []*entity.Address{{ID: 1}}

	fx.repo.EXPECT().FindByZipCode(ctx, "01001000").Return(hit, nil)
	fx.repo.EXPECT().FindByStreet(ctx, "rua a").Return([]*entity.Address{}, nil)
	fx.repo.EXPECT().FindByAlias(ctx, "centro").Return(hit, nil)

	byZip, err := fx.service.FindByZipCode(ctx, "01001000")
	require.NoError(t, err)
	assert.Equal(t, hit, byZip)

	byStreet, err := fx.service.FindByStreet(ctx, "rua a")
	require.NoError(t, err)
	assert.Empty(t, byStreet)

	byAlias, err := fx.service.FindByAlias(ctx, "centro")
	require.NoError(t, err)
	assert.Equal(t, hit, byAlias)
}

func TestAddressService_BulkCreateAddresses(t *testing.T) {
	ctx := context.Background()

	t.Run("all drafts forwarded", func(t *testing.T) {
		fx := createTestAddressService(t)
		inputs := []*usecase.CreateAddressInput{{ZipCode: "1"}, {ZipCode: "2"}}

		fx.repo.EXPECT().
			BulkInsert(ctx, mock.MatchedBy(func(drafts []entity.AddressDraft) bool {
				return len(drafts) == 2 && drafts[0].ZipCode == "1" && drafts[1].ZipCode == "2"
			})).
			Return([]*entity.Address{{ID: 1}, {ID: 2}}, nil)

		addresses, err := fx.service.BulkCreateAddresses(ctx, inputs)
		require.NoError(t, err)
		assert.Len(t, addresses, 2)
	})

	t.Run("aggregated duplicates", func(t *testing.T) {
		fx := createTestAddressService(t)
		collisions := multierr.Combine(
			domainerrors.ErrDuplicateKey.WithDetails("1"),
			domainerrors.ErrDuplicateKey.WithDetails("2"),
		)
		fx.repo.EXPECT().BulkInsert(ctx, mock.Anything).Return(nil, collisions)

		_, err := fx.service.BulkCreateAddresses(ctx, []*usecase.CreateAddressInput{{ZipCode: "1"}, {ZipCode: "2"}})
		assert.ErrorIs(t, err, domainerrors.ErrDuplicateKey)
		assert.Len(t, multierr.Errors(err), 2)
	})

	t.Run("nil input", func(t *testing.T) {
		fx := createTestAddressService(t)
		_, err := fx.service.BulkCreateAddresses(ctx, []*usecase.CreateAddressInput{{ZipCode: "1"}, nil})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidArgument)
	})
}

func TestAddressService_ImportExport(t *testing.T) {
	fx := createTestAddressService(t)
	ctx := context.Background()
	payload := []byte(`[]`)
	report := &service.ImportReport{Received: 0}

	fx.codec.EXPECT().Import(ctx, payload).Return(report, nil)
	fx.codec.EXPECT().Export(ctx).Return(payload, nil)

	got, err := fx.service.ImportAddresses(ctx, payload)
	require.NoError(t, err)
	assert.Same(t, report, got)

	exported, err := fx.service.ExportAddresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, payload, exported)
}

func TestAddressService_ImportRejected(t *testing.T) {
	fx := createTestAddressService(t)
	ctx := context.Background()

	fx.codec.EXPECT().Import(ctx, mock.Anything).Return(nil, domainerrors.ErrInvalidFormat.WithDetails("payload must be a JSON array"))

	_, err := fx.service.ImportAddresses(ctx, []byte(`{}`))
	assert.ErrorIs(t, err, domainerrors.ErrInvalidFormat)
	assert.Equal(t, domainerrors.KindInvalidFormat, domainerrors.KindOf(err))
}
