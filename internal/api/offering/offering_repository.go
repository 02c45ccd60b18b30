// Package offering gives the retrieval side its two read paths over the
// catalog: vector similarity and structured filtering.
package offering

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

// PGXPool is the pool surface the repository needs. pgxpool.Pool satisfies
// it in production and pgxmock satisfies it in tests.
type PGXPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository is the catalog read interface consumed by the RAG pipeline and
// the orchestration agents.
type Repository interface {
	// SearchBySimilarity returns up to topK offerings whose embedding cosine
	// similarity to queryVec meets threshold, ordered by similarity
	// descending. A threshold of zero disables score filtering entirely.
	// An empty category searches all categories.
	SearchBySimilarity(ctx context.Context, queryVec []float32, category types.OfferingCategory, topK int, threshold float64) (types.RetrievalResult, error)

	// SearchByFilters returns up to limit offerings matching every set
	// predicate, ordered per sort, with rank-based scores attached.
	SearchByFilters(ctx context.Context, filter types.OfferingFilter, sort types.SortOrder, limit int) (types.RetrievalResult, error)
}

type RepositoryImpl struct {
	pgpool PGXPool
	logger *slog.Logger
}

var _ Repository = (*RepositoryImpl)(nil)

func NewRepositoryImpl(pgpool PGXPool, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{pgpool: pgpool, logger: logger}
}

// vectorLiteral renders a float slice in pgvector's input syntax.
func vectorLiteral(vec []float32) string {
	strs := make([]string, len(vec))
	for i, v := range vec {
		strs[i] = fmt.Sprintf("%f", v)
	}
	return fmt.Sprintf("[%s]", strings.Join(strs, ","))
}

const offeringColumns = `id, name, description, category, location, latitude, longitude, rating, price_tier, features, phone, website, created_at`

func (r *RepositoryImpl) SearchBySimilarity(ctx context.Context, queryVec []float32, category types.OfferingCategory, topK int, threshold float64) (types.RetrievalResult, error) {
	ctx, span := otel.Tracer("OfferingRepository").Start(ctx, "SearchBySimilarity", trace.WithAttributes(
		attribute.Int("embedding.dimension", len(queryVec)),
		attribute.String("category", string(category)),
		attribute.Int("top_k", topK),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "SearchBySimilarity"))

	embeddingStr := vectorLiteral(queryVec)

	query := `
        SELECT ` + offeringColumns + `,
            1 - (embedding <=> $1::vector) AS similarity_score
        FROM offerings
        WHERE embedding IS NOT NULL
          AND ($2 <= 0 OR 1 - (embedding <=> $1::vector) >= $2)
          AND ($3 = '' OR category = $3)
        ORDER BY embedding <=> $1::vector, id ASC
        LIMIT $4
    `

	l.DebugContext(ctx, "Executing similarity search",
		slog.Int("embedding_dim", len(queryVec)),
		slog.String("category", string(category)),
		slog.Int("top_k", topK))

	rows, err := r.pgpool.Query(ctx, query, embeddingStr, threshold, string(category), topK)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query similar offerings", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("%w: similarity search: %w", types.ErrRetrievalFailure, err)
	}
	defer rows.Close()

	var result types.RetrievalResult
	for rows.Next() {
		so, err := scanScoredOffering(rows)
		if err != nil {
			l.ErrorContext(ctx, "Failed to scan offering row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("%w: scan offering row: %w", types.ErrRetrievalFailure, err)
		}
		result = append(result, so)
	}
	if err = rows.Err(); err != nil {
		l.ErrorContext(ctx, "Error iterating offering rows", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("%w: iterate offering rows: %w", types.ErrRetrievalFailure, err)
	}

	span.SetAttributes(attribute.Int("results.count", len(result)))
	span.SetStatus(codes.Ok, "similarity search complete")
	return result, nil
}

func (r *RepositoryImpl) SearchByFilters(ctx context.Context, filter types.OfferingFilter, sortOrder types.SortOrder, limit int) (types.RetrievalResult, error) {
	ctx, span := otel.Tracer("OfferingRepository").Start(ctx, "SearchByFilters", trace.WithAttributes(
		attribute.String("sort", string(sortOrder)),
		attribute.Int("limit", limit),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "SearchByFilters"))

	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		conditions = append(conditions, "category = "+arg(string(filter.Category)))
	}
	if filter.SearchText != "" {
		p := arg("%" + filter.SearchText + "%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if len(filter.Locations) > 0 {
		ors := make([]string, len(filter.Locations))
		for i, loc := range filter.Locations {
			ors[i] = "location ILIKE " + arg("%"+loc+"%")
		}
		conditions = append(conditions, "("+strings.Join(ors, " OR ")+")")
	}
	if filter.MinPrice != types.TierUnspecified {
		conditions = append(conditions, "price_tier >= "+arg(int(filter.MinPrice)))
	}
	if filter.MaxPrice != types.TierUnspecified {
		conditions = append(conditions, "price_tier <= "+arg(int(filter.MaxPrice)))
	}
	if filter.MinRating > 0 {
		conditions = append(conditions, "rating >= "+arg(filter.MinRating))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var orderBy string
	switch types.NormalizeSortOrder(sortOrder) {
	case types.SortNameAsc:
		orderBy = "name ASC, id ASC"
	case types.SortNameDesc:
		orderBy = "name DESC, id ASC"
	case types.SortRatingDesc:
		orderBy = "rating DESC, id ASC"
	case types.SortNewest:
		orderBy = "created_at DESC, id ASC"
	default:
		orderBy = "rating DESC, name ASC, id ASC"
	}

	query := fmt.Sprintf(`
        SELECT %s
        FROM offerings
        %s
        ORDER BY %s
        LIMIT %s
    `, offeringColumns, where, orderBy, arg(limit))

	l.DebugContext(ctx, "Executing filter search",
		slog.Int("conditions", len(conditions)),
		slog.String("sort", string(sortOrder)),
		slog.Int("limit", limit))

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query offerings by filters", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("%w: filter search: %w", types.ErrRetrievalFailure, err)
	}
	defer rows.Close()

	var offerings []types.Offering
	for rows.Next() {
		o, err := scanOffering(rows)
		if err != nil {
			l.ErrorContext(ctx, "Failed to scan offering row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("%w: scan offering row: %w", types.ErrRetrievalFailure, err)
		}
		offerings = append(offerings, o)
	}
	if err = rows.Err(); err != nil {
		l.ErrorContext(ctx, "Error iterating offering rows", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("%w: iterate offering rows: %w", types.ErrRetrievalFailure, err)
	}

	// Structured matches have no similarity score, so rank position stands
	// in: the first row gets 1.0 and each following row steps down slightly,
	// keeping merge ordering stable.
	result := make(types.RetrievalResult, len(offerings))
	for i, o := range offerings {
		result[i] = types.ScoredOffering{Offering: o, Score: rankScore(i, len(offerings))}
	}

	span.SetAttributes(attribute.Int("results.count", len(result)))
	span.SetStatus(codes.Ok, "filter search complete")
	return result, nil
}

// GetOfferingsWithoutEmbeddings returns a batch of catalog rows that have
// no embedding yet. Used by the backfill tool, not the request path.
func (r *RepositoryImpl) GetOfferingsWithoutEmbeddings(ctx context.Context, batchSize int) ([]types.Offering, error) {
	query := `
        SELECT ` + offeringColumns + `
        FROM offerings
        WHERE embedding IS NULL
        ORDER BY created_at ASC
        LIMIT $1
    `

	rows, err := r.pgpool.Query(ctx, query, batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query offerings without embeddings: %w", err)
	}
	defer rows.Close()

	var offerings []types.Offering
	for rows.Next() {
		o, err := scanOffering(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offering row: %w", err)
		}
		offerings = append(offerings, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offering rows: %w", err)
	}
	return offerings, nil
}

// UpdateOfferingEmbedding stores a freshly computed embedding on one row.
func (r *RepositoryImpl) UpdateOfferingEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	query := `UPDATE offerings SET embedding = $1::vector WHERE id = $2`
	if _, err := r.pgpool.Exec(ctx, query, vectorLiteral(embedding), id); err != nil {
		return fmt.Errorf("failed to update offering embedding: %w", err)
	}
	return nil
}

func rankScore(rank, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	step := 0.5 / float64(total-1)
	return 1.0 - float64(rank)*step
}

func scanScoredOffering(rows pgx.Rows) (types.ScoredOffering, error) {
	var so types.ScoredOffering
	o, score, err := scanRow(rows, true)
	if err != nil {
		return so, err
	}
	so.Offering = o
	so.Score = score
	return so, nil
}

func scanOffering(rows pgx.Rows) (types.Offering, error) {
	o, _, err := scanRow(rows, false)
	return o, err
}

func scanRow(rows pgx.Rows, withScore bool) (types.Offering, float64, error) {
	var (
		o           types.Offering
		score       float64
		description sql.NullString
		location    sql.NullString
		latitude    sql.NullFloat64
		longitude   sql.NullFloat64
		priceTier   int
		phone       sql.NullString
		website     sql.NullString
	)

	dest := []any{
		&o.ID, &o.Name, &description, &o.Category, &location,
		&latitude, &longitude, &o.Rating, &priceTier, &o.Features,
		&phone, &website, &o.CreatedAt,
	}
	if withScore {
		dest = append(dest, &score)
	}

	if err := rows.Scan(dest...); err != nil {
		return o, 0, err
	}

	if description.Valid {
		o.Description = description.String
	}
	if location.Valid {
		o.Location = location.String
	}
	if latitude.Valid {
		o.Latitude = latitude.Float64
	}
	if longitude.Valid {
		o.Longitude = longitude.Float64
	}
	o.PriceTier = types.PriceTier(priceTier)
	if phone.Valid {
		o.Phone = phone.String
	}
	if website.Valid {
		o.Website = website.String
	}
	return o, score, nil
}
