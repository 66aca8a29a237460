package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// Phase2Repo persists Phase2ParameterResult rows and the final
// RequestFinalOutput document composed by pkg/report.
type Phase2Repo struct {
	db DB
}

// SaveRouteScore persists every parameter result for one scored route.
func (r *Phase2Repo) SaveRouteScore(ctx context.Context, requestID string, score models.RouteScore) error {
	for _, p := range score.Parameters {
		_, err := r.db.Exec(ctx,
			`INSERT INTO phase2_parameter_results
			 (request_id, delivery_method, parameter, extracted_value, unit, score, weighted_score, rationale, extraction_method)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (request_id, delivery_method, parameter) DO UPDATE SET
			   extracted_value = EXCLUDED.extracted_value, unit = EXCLUDED.unit, score = EXCLUDED.score,
			   weighted_score = EXCLUDED.weighted_score, rationale = EXCLUDED.rationale,
			   extraction_method = EXCLUDED.extraction_method`,
			requestID, score.Route, p.Parameter, p.ExtractedValue, p.Unit, p.Score, p.WeightedScore, p.Rationale, p.ExtractionMethod)
		if err != nil {
			return eris.Wrap(err, "store: save phase2 parameter result")
		}
	}
	return nil
}

// RouteScore reassembles a RouteScore for one request and delivery method
// from its persisted parameter rows.
func (r *Phase2Repo) RouteScore(ctx context.Context, requestID string, route models.DeliveryMethod) ([]models.Phase2ParameterResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT parameter, extracted_value, unit, score, weighted_score, rationale, extraction_method
		 FROM phase2_parameter_results WHERE request_id = $1 AND delivery_method = $2`, requestID, route)
	if err != nil {
		return nil, eris.Wrap(err, "store: load phase2 parameter results")
	}
	defer rows.Close()

	var out []models.Phase2ParameterResult
	for rows.Next() {
		p := models.Phase2ParameterResult{RequestID: requestID}
		if err := rows.Scan(&p.Parameter, &p.ExtractedValue, &p.Unit, &p.Score, &p.WeightedScore, &p.Rationale, &p.ExtractionMethod); err != nil {
			return nil, eris.Wrap(err, "store: scan phase2 parameter result row")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveFinalOutput upserts the composed RequestFinalOutput document.
func (r *Phase2Repo) SaveFinalOutput(ctx context.Context, out models.RequestFinalOutput) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO request_final_outputs
		 (request_id, document, td_score, tm_score, td_verdict, tm_verdict, go_decision, investment_priority, risk_level, version, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (request_id) DO UPDATE SET
		   document = EXCLUDED.document, td_score = EXCLUDED.td_score, tm_score = EXCLUDED.tm_score,
		   td_verdict = EXCLUDED.td_verdict, tm_verdict = EXCLUDED.tm_verdict, go_decision = EXCLUDED.go_decision,
		   investment_priority = EXCLUDED.investment_priority, risk_level = EXCLUDED.risk_level,
		   version = EXCLUDED.version, generated_at = EXCLUDED.generated_at`,
		out.RequestID, out.Document, out.TDScore, out.TMScore, out.TDVerdict, out.TMVerdict,
		out.GoDecision, out.InvestmentPriority, out.RiskLevel, out.Version, out.GeneratedAt)
	if err != nil {
		return eris.Wrap(err, "store: save final output")
	}
	return nil
}

// FinalOutput fetches the composed document for a request.
func (r *Phase2Repo) FinalOutput(ctx context.Context, requestID string) (models.RequestFinalOutput, error) {
	var out models.RequestFinalOutput
	out.RequestID = requestID
	err := r.db.QueryRow(ctx,
		`SELECT document, td_score, tm_score, td_verdict, tm_verdict, go_decision, investment_priority, risk_level, version, generated_at
		 FROM request_final_outputs WHERE request_id = $1`, requestID,
	).Scan(&out.Document, &out.TDScore, &out.TMScore, &out.TDVerdict, &out.TMVerdict, &out.GoDecision,
		&out.InvestmentPriority, &out.RiskLevel, &out.Version, &out.GeneratedAt)
	if err != nil {
		return models.RequestFinalOutput{}, eris.Wrapf(err, "store: get final output %s", requestID)
	}
	return out, nil
}
