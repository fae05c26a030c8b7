package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"mediahub/internal/tenantctx"
	"mediahub/pkg/models"
)

// TemplateRepo backs both template.Repo's template-facing methods and
// configresolver.TemplateRepo.
type TemplateRepo struct{ DB }

func NewTemplateRepo(db DB) *TemplateRepo { return &TemplateRepo{DB: db} }

func (r *TemplateRepo) ListActive(ctx context.Context, tc tenantctx.Context) ([]models.Template, error) {
	rows, err := r.Conn.QueryContext(ctx, `
		SELECT id, tenant_id, name, status, priority, processing_config, transcription_config,
			metadata_config, created_at, updated_at
		FROM templates WHERE tenant_id = $1 AND status = $2`, tc.TenantID, models.TemplateActive)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var templates []models.Template
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}

	for i := range templates {
		rules, err := r.loadRules(ctx, templates[i].ID)
		if err != nil {
			return nil, err
		}
		templates[i].Rules = rules
	}
	return templates, nil
}

func scanTemplate(row interface{ Scan(...interface{}) error }) (models.Template, error) {
	var t models.Template
	var processing, transcription, metadata []byte
	err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Status, &t.Priority, &processing, &transcription,
		&metadata, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Template{}, mapErr(err)
	}
	if t.ProcessingConfig, err = unmarshalJSONB(processing); err != nil {
		return models.Template{}, err
	}
	if t.TranscriptionConfig, err = unmarshalJSONB(transcription); err != nil {
		return models.Template{}, err
	}
	if t.MetadataConfig, err = unmarshalJSONB(metadata); err != nil {
		return models.Template{}, err
	}
	return t, nil
}

func (r *TemplateRepo) loadRules(ctx context.Context, templateID string) ([]models.MatchingRule, error) {
	rows, err := r.Conn.QueryContext(ctx, `
		SELECT id, template_id, match_type, pattern, source_type, source_id, priority
		FROM matching_rules WHERE template_id = $1 ORDER BY priority DESC`, templateID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var rules []models.MatchingRule
	for rows.Next() {
		var rule models.MatchingRule
		var sourceType, sourceID sql.NullString
		if err := rows.Scan(&rule.ID, &rule.TemplateID, &rule.MatchType, &rule.Pattern, &sourceType, &sourceID, &rule.Priority); err != nil {
			return nil, mapErr(err)
		}
		if sourceType.Valid {
			st := models.SourceType(sourceType.String)
			rule.SourceType = &st
		}
		if sourceID.Valid {
			rule.SourceID = &sourceID.String
		}
		rules = append(rules, rule)
	}
	return rules, mapErr(rows.Err())
}

// GetConfigDocs implements configresolver.TemplateRepo: live reads so an
// edit to a template's config takes effect on the next resolve.
func (r *TemplateRepo) GetConfigDocs(ctx context.Context, tc tenantctx.Context, templateID string) (processing, transcription, metadata models.JSONB, err error) {
	var p, t, m []byte
	row := r.Conn.QueryRowContext(ctx, `
		SELECT processing_config, transcription_config, metadata_config
		FROM templates WHERE tenant_id = $1 AND id = $2`, tc.TenantID, templateID)
	if err := row.Scan(&p, &t, &m); err != nil {
		return nil, nil, nil, mapErr(err)
	}
	processing, err = unmarshalJSONB(p)
	if err != nil {
		return nil, nil, nil, err
	}
	transcription, err = unmarshalJSONB(t)
	if err != nil {
		return nil, nil, nil, err
	}
	metadata, err = unmarshalJSONB(m)
	if err != nil {
		return nil, nil, nil, err
	}
	return processing, transcription, metadata, nil
}

// Get returns one template by id, rules included, for the §6 API surface.
func (r *TemplateRepo) Get(ctx context.Context, tc tenantctx.Context, id string) (models.Template, error) {
	row := r.Conn.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, status, priority, processing_config, transcription_config,
			metadata_config, created_at, updated_at
		FROM templates WHERE tenant_id = $1 AND id = $2`, tc.TenantID, id)
	tmpl, err := scanTemplate(row)
	if err != nil {
		return models.Template{}, err
	}
	tmpl.Rules, err = r.loadRules(ctx, tmpl.ID)
	return tmpl, err
}

// Upsert creates or replaces a template row and its rule set wholesale;
// called by the §6 CreateTemplate/UpdateTemplate operations.
func (r *TemplateRepo) Upsert(ctx context.Context, tc tenantctx.Context, tmpl models.Template) (models.Template, error) {
	processing, err := marshalJSONB(tmpl.ProcessingConfig)
	if err != nil {
		return models.Template{}, err
	}
	transcription, err := marshalJSONB(tmpl.TranscriptionConfig)
	if err != nil {
		return models.Template{}, err
	}
	metadata, err := marshalJSONB(tmpl.MetadataConfig)
	if err != nil {
		return models.Template{}, err
	}

	err = withTx(ctx, r.Conn, func(tx *sql.Tx) error {
		if tmpl.ID == "" {
			tmpl.ID = uuid.NewString()
			tmpl.TenantID = tc.TenantID
			_, err := tx.ExecContext(ctx, `
				INSERT INTO templates (id, tenant_id, name, status, priority, processing_config,
					transcription_config, metadata_config, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`,
				tmpl.ID, tmpl.TenantID, tmpl.Name, tmpl.Status, tmpl.Priority, processing, transcription, metadata)
			if err != nil {
				return err
			}
		} else {
			_, err := tx.ExecContext(ctx, `
				UPDATE templates SET name = $1, status = $2, priority = $3, processing_config = $4,
					transcription_config = $5, metadata_config = $6, updated_at = now()
				WHERE tenant_id = $7 AND id = $8`,
				tmpl.Name, tmpl.Status, tmpl.Priority, processing, transcription, metadata, tc.TenantID, tmpl.ID)
			if err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM matching_rules WHERE template_id = $1`, tmpl.ID); err != nil {
			return err
		}
		for _, rule := range tmpl.Rules {
			ruleID := rule.ID
			if ruleID == "" {
				ruleID = uuid.NewString()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO matching_rules (id, template_id, match_type, pattern, source_type, source_id, priority)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				ruleID, tmpl.ID, rule.MatchType, rule.Pattern, rule.SourceType, rule.SourceID, rule.Priority)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Template{}, mapErr(err)
	}
	return r.Get(ctx, tc, tmpl.ID)
}

func (r *TemplateRepo) Delete(ctx context.Context, tc tenantctx.Context, id string) error {
	_, err := r.Conn.ExecContext(ctx, `DELETE FROM templates WHERE tenant_id = $1 AND id = $2`, tc.TenantID, id)
	return mapErr(err)
}

// MatcherRepo satisfies template.Repo, whose six methods split naturally
// across the template table (ListActive) and the recording table (the
// other five: bind/unbind and the three listing shapes the matcher and
// the rematch operation need). Embedding both gives one concrete type;
// Get and Delete exist on both embedded types, so MatcherRepo promotes
// neither of them.
type MatcherRepo struct {
	*TemplateRepo
	*RecordingRepo
}

func NewMatcherRepo(templates *TemplateRepo, recordings *RecordingRepo) *MatcherRepo {
	return &MatcherRepo{TemplateRepo: templates, RecordingRepo: recordings}
}
