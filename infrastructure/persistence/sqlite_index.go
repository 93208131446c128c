package persistence

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/free4inno/intenthub/domain/index"
	infraindex "github.com/free4inno/intenthub/infrastructure/index"
)

const upsertBatchSize = 500

// Float64Slice stores a vector as a JSON column.
type Float64Slice []float64

// Value implements driver.Valuer.
func (f Float64Slice) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements sql.Scanner.
func (f *Float64Slice) Scan(value any) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	case nil:
		*f = nil
		return nil
	default:
		return fmt.Errorf("unsupported embedding column type %T", value)
	}
}

// pointModel is the GORM row for a stored point.
type pointModel struct {
	PointID           string       `gorm:"column:point_id;primaryKey"`
	RouteID           int          `gorm:"column:route_id;index"`
	RouteName         string       `gorm:"column:route_name"`
	Utterance         string       `gorm:"column:utterance"`
	Negative          bool         `gorm:"column:negative;index"`
	NegativeThreshold float64      `gorm:"column:negative_threshold"`
	Embedding         Float64Slice `gorm:"column:embedding;type:json"`
}

func (pointModel) TableName() string { return "intenthub_points" }

func (m pointModel) payload() index.Payload {
	if m.Negative {
		return index.NewNegativePayload(m.RouteID, m.RouteName, m.Utterance, m.NegativeThreshold)
	}
	return index.NewPayload(m.RouteID, m.RouteName, m.Utterance)
}

// SQLiteIndex implements index.VectorIndex on SQLite. Vectors are stored
// as JSON and similarity search runs in-memory, which is adequate for
// the utterance counts a single operator curates.
type SQLiteIndex struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewSQLiteIndex creates the index, migrating its table eagerly.
func NewSQLiteIndex(db *gorm.DB, logger *slog.Logger) (*SQLiteIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.AutoMigrate(&pointModel{}); err != nil {
		return nil, fmt.Errorf("migrate points table: %w", err)
	}
	return &SQLiteIndex{db: db, logger: logger}, nil
}

// EnsureReady is satisfied by the migration in NewSQLiteIndex; the JSON
// column needs no dimension up front.
func (s *SQLiteIndex) EnsureReady(_ context.Context, _ int) error { return nil }

// Upsert writes points with batched ON CONFLICT replacement.
func (s *SQLiteIndex) Upsert(ctx context.Context, points []index.Point) error {
	if len(points) == 0 {
		return nil
	}

	models := make([]pointModel, len(points))
	for i, p := range points {
		pl := p.Payload()
		models[i] = pointModel{
			PointID:           p.ID(),
			RouteID:           pl.RouteID(),
			RouteName:         pl.RouteName(),
			Utterance:         pl.Utterance(),
			Negative:          pl.Negative(),
			NegativeThreshold: pl.NegativeThreshold(),
			Embedding:         Float64Slice(p.Vector()),
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "point_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"route_id", "route_name", "utterance", "negative", "negative_threshold", "embedding"}),
		}).CreateInBatches(models, upsertBatchSize).Error
	})
}

// DeleteByIDs removes the given points.
func (s *SQLiteIndex) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("point_id IN ?", ids).Delete(&pointModel{}).Error
}

// DeleteByRoute removes every point belonging to the route.
func (s *SQLiteIndex) DeleteByRoute(ctx context.Context, routeID int) error {
	return s.db.WithContext(ctx).Where("route_id = ?", routeID).Delete(&pointModel{}).Error
}

func applyFilter(db *gorm.DB, filter index.Filter) *gorm.DB {
	if routeID, ok := filter.RouteID(); ok {
		db = db.Where("route_id = ?", routeID)
	}
	if negative, ok := filter.Negative(); ok {
		db = db.Where("negative = ?", negative)
	}
	return db
}

// Search loads candidate rows and ranks them by cosine similarity.
func (s *SQLiteIndex) Search(ctx context.Context, vector []float64, k int, filter index.Filter) ([]index.Match, error) {
	if k <= 0 {
		return []index.Match{}, nil
	}

	var rows []pointModel
	if err := applyFilter(s.db.WithContext(ctx), filter).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: sqlite index search: %w", index.ErrUnavailable, err)
	}

	matches := make([]index.Match, 0, len(rows))
	for _, row := range rows {
		if len(row.Embedding) == 0 {
			s.logger.Warn("skipping point with empty embedding", "point_id", row.PointID)
			continue
		}
		score := infraindex.CosineSimilarity(vector, row.Embedding)
		matches = append(matches, index.NewMatch(row.PointID, score, row.payload()))
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score() != matches[j].Score() {
			return matches[i].Score() > matches[j].Score()
		}
		return matches[i].ID() < matches[j].ID()
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Scroll returns id and payload of every point matching the filter.
func (s *SQLiteIndex) Scroll(ctx context.Context, filter index.Filter) ([]index.StoredPoint, error) {
	var rows []pointModel
	err := applyFilter(s.db.WithContext(ctx), filter).
		Select("point_id", "route_id", "route_name", "utterance", "negative", "negative_threshold").
		Order("point_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite index scroll: %w", index.ErrUnavailable, err)
	}

	out := make([]index.StoredPoint, len(rows))
	for i, row := range rows {
		out[i] = index.NewStoredPoint(row.PointID, row.payload())
	}
	return out, nil
}

// IDsByRoute returns the ids of all points belonging to the route.
func (s *SQLiteIndex) IDsByRoute(ctx context.Context, routeID int) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&pointModel{}).
		Where("route_id = ?", routeID).
		Order("point_id").
		Pluck("point_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite index ids: %w", index.ErrUnavailable, err)
	}
	return ids, nil
}

// Count returns the number of points matching the filter.
func (s *SQLiteIndex) Count(ctx context.Context, filter index.Filter) (int, error) {
	var n int64
	if err := applyFilter(s.db.WithContext(ctx).Model(&pointModel{}), filter).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("%w: sqlite index count: %w", index.ErrUnavailable, err)
	}
	return int(n), nil
}

var _ index.VectorIndex = (*SQLiteIndex)(nil)
