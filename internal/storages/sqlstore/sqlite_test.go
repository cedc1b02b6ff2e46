package sqlstore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Barizhka/magnate-otc/internal/config"
	"github.com/Barizhka/magnate-otc/internal/logger"
	"github.com/Barizhka/magnate-otc/internal/storages"
)

func newSQLiteStorage(t *testing.T) *SQLStorage {
	t.Helper()

	storage, err := New(&Config{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "otc.db"),
	}, logger.Discard())
	require.NoError(t, err)

	t.Cleanup(func() { storage.Close() })
	return storage
}

func testUser(id int64, login string) *storages.User {
	return &storages.User{
		UserID:          id,
		Username:        "user",
		TonWallet:       "",
		CardDetails:     "5536913996855484",
		Balance:         decimal.RequireFromString("1000.25"),
		SuccessfulDeals: 5,
		Lang:            "ru",
		IsAdmin:         true,
		WebLogin:        login,
		WebPasswordHash: "$2a$10$hash",
	}
}

func TestSQLiteUsers(t *testing.T) {
	storage := newSQLiteStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertUser(ctx, testUser(123456789, "testuser")))

	user, err := storage.GetUserByWebLogin(ctx, "testuser")
	require.NoError(t, err)
	assert.Equal(t, int64(123456789), user.UserID)
	assert.True(t, user.Balance.Equal(decimal.RequireFromString("1000.25")))
	assert.True(t, user.IsAdmin)
	assert.Equal(t, "$2a$10$hash", user.WebPasswordHash)

	byID, err := storage.GetUserByID(ctx, 123456789)
	require.NoError(t, err)
	assert.Equal(t, "testuser", byID.WebLogin)

	_, err = storage.GetUserByID(ctx, 1)
	assert.ErrorIs(t, err, storages.ErrNotFound)

	_, err = storage.GetUserByWebLogin(ctx, "missing")
	assert.ErrorIs(t, err, storages.ErrNotFound)
}

func TestSQLiteUpsertUpdatesExistingRow(t *testing.T) {
	storage := newSQLiteStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertUser(ctx, testUser(1, "old")))

	updated := testUser(1, "new")
	updated.Lang = "en"
	require.NoError(t, storage.UpsertUser(ctx, updated))

	user, err := storage.GetUserByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "new", user.WebLogin)
	assert.Equal(t, "en", user.Lang)

	_, err = storage.GetUserByWebLogin(ctx, "old")
	assert.ErrorIs(t, err, storages.ErrNotFound)
}

func TestSQLiteUsersWithoutWebAccess(t *testing.T) {
	storage := newSQLiteStorage(t)
	ctx := context.Background()

	// Пользователи бота без веб-доступа не конфликтуют по web_login
	first := testUser(1, "")
	first.WebPasswordHash = ""
	second := testUser(2, "")
	second.WebPasswordHash = ""

	require.NoError(t, storage.UpsertUser(ctx, first))
	require.NoError(t, storage.UpsertUser(ctx, second))

	user, err := storage.GetUserByID(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, user.WebLogin)
	assert.Empty(t, user.WebPasswordHash)
}

func TestSQLiteDuplicateWebLogin(t *testing.T) {
	storage := newSQLiteStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.UpsertUser(ctx, testUser(1, "taken")))

	err := storage.UpsertUser(ctx, testUser(2, "taken"))
	assert.ErrorIs(t, err, storages.ErrAlreadyExists)
}

func TestSQLiteDealsOrderingAndOwnership(t *testing.T) {
	storage := newSQLiteStorage(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, storage.UpsertUser(ctx, testUser(id, "")))
	}

	base := time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC)
	buyer := int64(1)

	// Вставка намеренно не по порядку времени
	deals := []storages.Deal{
		{DealID: "web_middle", Amount: decimal.RequireFromString("100.5"), SellerID: 1, CreatedAt: base.Add(time.Hour)},
		{DealID: "web_latest", Amount: decimal.NewFromInt(7), SellerID: 3, BuyerID: &buyer, CreatedAt: base.Add(2*time.Hour + 250*time.Microsecond)},
		{DealID: "web_oldest", Amount: decimal.NewFromInt(3), SellerID: 1, CreatedAt: base},
		{DealID: "web_foreign", Amount: decimal.NewFromInt(9), SellerID: 2, CreatedAt: base.Add(3 * time.Hour)},
	}
	for i := range deals {
		deals[i].Description = "sell BTC"
		deals[i].Status = storages.DealStatusActive
		deals[i].PaymentMethod = storages.PaymentMethodTON
		deals[i].Source = storages.DealSourceWeb
		require.NoError(t, storage.CreateDeal(ctx, &deals[i]))
	}

	got, err := storage.GetUserDeals(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "web_latest", got[0].DealID)
	assert.Equal(t, "web_middle", got[1].DealID)
	assert.Equal(t, "web_oldest", got[2].DealID)

	require.NotNil(t, got[0].BuyerID)
	assert.Equal(t, int64(1), *got[0].BuyerID)
	assert.True(t, got[0].CreatedAt.Equal(deals[1].CreatedAt))
	assert.Nil(t, got[1].BuyerID)
	assert.True(t, got[1].Amount.Equal(decimal.RequireFromString("100.5")))
	assert.Equal(t, storages.PaymentMethodTON, got[1].PaymentMethod)

	empty, err := storage.GetUserDeals(ctx, 999)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSQLiteDealConstraints(t *testing.T) {
	storage := newSQLiteStorage(t)
	ctx := context.Background()
	require.NoError(t, storage.UpsertUser(ctx, testUser(1, "")))

	deal := &storages.Deal{
		DealID:        "web_20240517100000_1",
		Amount:        decimal.NewFromInt(1),
		Description:   "sell",
		SellerID:      1,
		Status:        storages.DealStatusActive,
		PaymentMethod: storages.PaymentMethodSBP,
		Source:        storages.DealSourceWeb,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, storage.CreateDeal(ctx, deal))

	err := storage.CreateDeal(ctx, deal)
	assert.ErrorIs(t, err, storages.ErrAlreadyExists)

	orphan := *deal
	orphan.DealID = "web_orphan"
	orphan.SellerID = 404
	err = storage.CreateDeal(ctx, &orphan)
	require.Error(t, err)
	assert.NotErrorIs(t, err, storages.ErrAlreadyExists)

	negative := *deal
	negative.DealID = "web_negative"
	negative.Amount = decimal.NewFromInt(-1)
	assert.Error(t, storage.CreateDeal(ctx, &negative))
}

func TestSQLiteKeepsExactAmounts(t *testing.T) {
	storage := newSQLiteStorage(t)
	ctx := context.Background()

	user := testUser(1, "")
	user.Balance = decimal.RequireFromString("12345678901.12345678")
	require.NoError(t, storage.UpsertUser(ctx, user))

	amounts := []string{"99999999999.99999999", "0.123456789", "0.123456789012345678", "100.5"}
	base := time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC)
	for i, raw := range amounts {
		require.NoError(t, storage.CreateDeal(ctx, &storages.Deal{
			DealID:        fmt.Sprintf("web_exact_%d", i),
			Amount:        decimal.RequireFromString(raw),
			Description:   "exact",
			SellerID:      1,
			Status:        storages.DealStatusActive,
			PaymentMethod: storages.PaymentMethodTON,
			Source:        storages.DealSourceWeb,
			CreatedAt:     base.Add(-time.Duration(i) * time.Minute),
		}))
	}

	deals, err := storage.GetUserDeals(ctx, 1)
	require.NoError(t, err)
	require.Len(t, deals, len(amounts))
	for i, raw := range amounts {
		assert.Equal(t, raw, deals[i].Amount.String())
	}

	got, err := storage.GetUserByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "12345678901.12345678", got.Balance.String())
}

func TestSQLiteTickets(t *testing.T) {
	storage := newSQLiteStorage(t)
	ctx := context.Background()
	require.NoError(t, storage.UpsertUser(ctx, testUser(1, "")))
	require.NoError(t, storage.UpsertUser(ctx, testUser(2, "")))

	base := time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC)
	tickets := []storages.Ticket{
		{TicketID: "ticket_old", UserID: 1, CreatedAt: base},
		{TicketID: "ticket_other", UserID: 2, CreatedAt: base.Add(time.Minute)},
		{TicketID: "ticket_new", UserID: 1, CreatedAt: base.Add(time.Hour)},
	}
	for i := range tickets {
		tickets[i].Subject = "subject"
		tickets[i].Message = "message"
		tickets[i].Status = storages.TicketStatusOpen
		require.NoError(t, storage.CreateTicket(ctx, &tickets[i]))
	}

	got, err := storage.GetUserTickets(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ticket_new", got[0].TicketID)
	assert.Equal(t, "ticket_old", got[1].TicketID)
	assert.Equal(t, storages.TicketStatusOpen, got[0].Status)

	assert.ErrorIs(t, storage.CreateTicket(ctx, &tickets[0]), storages.ErrAlreadyExists)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otc.db")
	cfg := &Config{Driver: config.DriverSQLite, Path: path}

	storage, err := New(cfg, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, storage.UpsertUser(context.Background(), testUser(1, "persisted")))
	require.NoError(t, storage.Close())

	reopened, err := New(cfg, logger.Discard())
	require.NoError(t, err)
	defer reopened.Close()

	user, err := reopened.GetUserByWebLogin(context.Background(), "persisted")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.UserID)
}
