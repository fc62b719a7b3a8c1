package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aromano/pricewatch/internal/tracker"
)

func TestAppendInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithConn(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	snap := tracker.ProductSnapshot{
		Title:        tracker.StringPtr("Widget"),
		Price:        tracker.StringPtr("$19.99"),
		Availability: tracker.StringPtr("In stock"),
		SourceURL:    "https://example.com/p",
		FetchedAt:    now,
	}

	mock.ExpectExec("INSERT INTO snapshots").
		WithArgs(
			snap.Title,
			snap.Price,
			snap.Availability,
			snap.ASIN,
			snap.SKU,
			snap.SourceURL,
			snap.FetchedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Append(context.Background(), snap))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLastByURLScansRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithConn(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	title := "Widget"
	price := "$19.99"

	rows := pgxmock.NewRows([]string{
		"title", "price", "availability", "asin", "sku", "source_url", "fetched_at",
	}).AddRow(&title, &price, (*string)(nil), (*string)(nil), (*string)(nil), "https://example.com/p", now)

	mock.ExpectQuery("SELECT title, price, availability, asin, sku, source_url, fetched_at").
		WithArgs("https://example.com/p").
		WillReturnRows(rows)

	snap, err := store.GetLastByURL(context.Background(), "https://example.com/p")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "Widget", tracker.StringOrEmpty(snap.Title))
	assert.Equal(t, "$19.99", tracker.StringOrEmpty(snap.Price))
	assert.Nil(t, snap.Availability)
	assert.Equal(t, now, snap.FetchedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLastByURLNoRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithConn(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT title, price, availability").
		WithArgs("https://example.com/unknown").
		WillReturnRows(pgxmock.NewRows([]string{
			"title", "price", "availability", "asin", "sku", "source_url", "fetched_at",
		}))

	snap, err := store.GetLastByURL(context.Background(), "https://example.com/unknown")
	require.NoError(t, err, "no rows must map to nil, nil")
	assert.Nil(t, snap)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendLogInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithConn(mock)
	require.NoError(t, err)

	entry := tracker.CycleLog{
		CycleID:   "cycle-1",
		URL:       "https://example.com/p",
		Status:    "changed",
		Title:     "Widget",
		Summary:   "price: $10 → $12 (Δ20.00%)",
		Persisted: true,
		Alerted:   true,
		At:        time.Unix(1700000000, 0).UTC(),
	}

	mock.ExpectExec("INSERT INTO cycle_log").
		WithArgs(
			entry.CycleID,
			entry.URL,
			entry.Status,
			entry.Title,
			entry.Summary,
			entry.Persisted,
			entry.Alerted,
			entry.Error,
			entry.At,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.AppendLog(context.Background(), entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryErrorsAreWrapped(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithConn(mock)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO snapshots").
		WillReturnError(errors.New("connection reset"))

	err = store.Append(context.Background(), tracker.ProductSnapshot{SourceURL: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert snapshot")
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}

func TestNewWithConnRequiresConn(t *testing.T) {
	t.Parallel()

	_, err := NewWithConn(nil)
	require.Error(t, err)
}
