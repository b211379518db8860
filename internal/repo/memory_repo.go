package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/mrecall/internal/model"
	"github.com/xxxsen/mrecall/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mrecall/internal/pkg/errors"
)

type MemoryRepo struct {
	db *sqlx.DB
}

func NewMemoryRepo(db *sqlx.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

type memoryRow struct {
	ID              string          `db:"id"`
	MemType         string          `db:"mem_type"`
	Category        string          `db:"category"`
	Title           string          `db:"title"`
	Content         string          `db:"content"`
	SourceChunkRef  string          `db:"source_chunk_ref"`
	RelatedEntities []byte          `db:"related_entities"`
	EntitiesText    string          `db:"entities_text"`
	ConfidenceScore float64         `db:"confidence_score"`
	Reasoning       string          `db:"reasoning"`
	Evidence        string          `db:"evidence"`
	Embedding       pgvector.Vector `db:"embedding"`
	EmbedMode       string          `db:"embed_mode"`
	Ctime           int64           `db:"ctime"`
}

const memoryColumns = `id, mem_type, category, title, content, source_chunk_ref,
	related_entities, entities_text, confidence_score, reasoning, evidence,
	embedding, embed_mode, ctime`

func (r *memoryRow) toModel() (*model.Memory, error) {
	var entities []string
	if len(r.RelatedEntities) > 0 {
		if err := json.Unmarshal(r.RelatedEntities, &entities); err != nil {
			return nil, fmt.Errorf("decode related entities: %w", err)
		}
	}
	return &model.Memory{
		ID:              r.ID,
		Type:            model.MemoryType(r.MemType),
		Category:        r.Category,
		Title:           r.Title,
		Content:         r.Content,
		SourceChunkRef:  r.SourceChunkRef,
		RelatedEntities: entities,
		ConfidenceScore: r.ConfidenceScore,
		Reasoning:       r.Reasoning,
		Evidence:        r.Evidence,
		Embedding: model.Vector{
			Values: r.Embedding.Slice(),
			Mode:   model.VectorMode(r.EmbedMode),
		},
		Ctime: r.Ctime,
	}, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, mem *model.Memory) error {
	entities, err := json.Marshal(mem.RelatedEntities)
	if err != nil {
		return fmt.Errorf("encode related entities: %w", err)
	}
	const query = `
		INSERT INTO memories (` + memoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.db.ExecContext(ctx, query,
		mem.ID,
		string(mem.Type),
		mem.Category,
		mem.Title,
		mem.Content,
		mem.SourceChunkRef,
		entities,
		entitiesText(mem.RelatedEntities),
		mem.ConfidenceScore,
		mem.Reasoning,
		mem.Evidence,
		pgvector.NewVector(mem.Embedding.Values),
		string(mem.Embedding.Mode),
		mem.Ctime,
	)
	if dbutil.IsConflict(err) {
		return appErr.ErrConflict
	}
	return err
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (*model.Memory, error) {
	const query = `SELECT ` + memoryColumns + ` FROM memories WHERE id = $1`
	var row memoryRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return row.toModel()
}

func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]*model.Memory, error) {
	const query = `SELECT ` + memoryColumns + ` FROM memories ORDER BY ctime DESC, id LIMIT $1 OFFSET $2`
	var rows []memoryRow
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, err
	}
	memories := make([]*model.Memory, 0, len(rows))
	for i := range rows {
		mem, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		memories = append(memories, mem)
	}
	return memories, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *MemoryRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM memories`); err != nil {
		return 0, err
	}
	return count, nil
}

// ListVectors enumerates (id, embedding, ctime) for the ranker. Readers get
// an eventually-consistent view; a memory written mid-query may be absent.
func (r *MemoryRepo) ListVectors(ctx context.Context) ([]model.MemoryVector, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, embedding, ctime FROM memories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var vectors []model.MemoryVector
	for rows.Next() {
		var item model.MemoryVector
		var emb pgvector.Vector
		if err := rows.Scan(&item.ID, &emb, &item.Ctime); err != nil {
			return nil, err
		}
		item.Embedding = emb.Slice()
		vectors = append(vectors, item)
	}
	return vectors, rows.Err()
}

// ScanEntity returns ids of memories whose entity list contains any of the
// terms, or whose title/content contains the raw query text. All matching is
// case-insensitive substring containment.
func (r *MemoryRepo) ScanEntity(ctx context.Context, terms []string, queryText string) ([]string, error) {
	var conds []string
	var args []interface{}
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		args = append(args, "%"+strings.ToLower(term)+"%")
		conds = append(conds, fmt.Sprintf("entities_text LIKE $%d", len(args)))
	}
	if text := strings.TrimSpace(queryText); text != "" {
		args = append(args, "%"+text+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR content ILIKE $%d)", n, n))
	}
	if len(conds) == 0 {
		return nil, nil
	}
	query := `SELECT id FROM memories WHERE ` + strings.Join(conds, " OR ")
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListMockEmbeddings feeds the backfill job with memories that were embedded
// while the real endpoint was down.
func (r *MemoryRepo) ListMockEmbeddings(ctx context.Context, limit int) ([]*model.Memory, error) {
	const query = `SELECT ` + memoryColumns + ` FROM memories WHERE embed_mode = $1 ORDER BY ctime LIMIT $2`
	var rows []memoryRow
	if err := r.db.SelectContext(ctx, &rows, query, string(model.VectorModeMock), limit); err != nil {
		return nil, err
	}
	memories := make([]*model.Memory, 0, len(rows))
	for i := range rows {
		mem, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		memories = append(memories, mem)
	}
	return memories, nil
}

func (r *MemoryRepo) UpdateEmbedding(ctx context.Context, id string, vec model.Vector) error {
	const query = `UPDATE memories SET embedding = $1, embed_mode = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, pgvector.NewVector(vec.Values), string(vec.Mode), id)
	return err
}

// entitiesText is the lowercased scan column; one entity per line so a
// substring match cannot bridge two adjacent entities.
func entitiesText(entities []string) string {
	if len(entities) == 0 {
		return ""
	}
	return strings.ToLower(strings.Join(entities, "\n"))
}
