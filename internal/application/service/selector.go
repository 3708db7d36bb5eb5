package service

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"obpilot/internal/application/port"
	"obpilot/internal/domain/model"
)

// Selection is one scored candidate chosen for a side.
type Selection struct {
	Cluster     model.Cluster
	Side        model.Side
	Probability float64 // class-2 probability of the winning candidate
	Rank        int     // 1-based rank within the candidate list
}

// ClusterSelector builds the feature matrix for a candidate list and asks
// the scoring model for the best entry cluster.
type ClusterSelector struct {
	model port.ScoringModel
}

func NewClusterSelector(m port.ScoringModel) *ClusterSelector {
	return &ClusterSelector{model: m}
}

// Select returns the candidate with the strictly highest class-2 probability,
// or nil when the list is inconclusive (fewer than 2 candidates) or scoring
// fails. No confidence floor: the best of a weak set is still returned.
// Ties keep the first-encountered candidate so selection is deterministic.
func (s *ClusterSelector) Select(clusters []model.Cluster, currentPrice decimal.Decimal, side model.Side) *Selection {
	if len(clusters) < 2 {
		return nil
	}

	rows := make([][]float64, 0, len(clusters))
	for i, c := range clusters {
		row, err := s.featureRow(c, currentPrice, side, i+1)
		if err != nil {
			log.Error().Err(err).Str("side", string(side)).Msg("feature construction failed")
			return nil
		}
		rows = append(rows, row)
	}

	probs, err := s.model.PredictProba(rows)
	if err != nil {
		log.Error().Err(err).Str("side", string(side)).Msg("model scoring failed")
		return nil
	}

	bestIdx := -1
	bestProb := 0.0
	for i, p := range probs {
		if len(p) <= 2 {
			continue
		}
		if p[2] > bestProb {
			bestProb = p[2]
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return nil
	}

	return &Selection{
		Cluster:     clusters[bestIdx],
		Side:        side,
		Probability: bestProb,
		Rank:        bestIdx + 1,
	}
}

// featureRow builds one candidate's features in the model's declared column
// order. Values outside the four live columns are zero placeholders.
func (s *ClusterSelector) featureRow(c model.Cluster, currentPrice decimal.Decimal, side model.Side, rank int) ([]float64, error) {
	if currentPrice.Sign() == 0 {
		return nil, fmt.Errorf("current price is zero")
	}

	volume := c.Volume.InexactFloat64()
	distPct := c.Price.Sub(currentPrice).Div(currentPrice).Mul(decimal.NewFromInt(100)).Abs().InexactFloat64()

	isLong := 0.0
	if side == model.SideLong {
		isLong = 1.0
	}

	values := map[string]float64{
		"is_long":      isLong,
		"block_rank":   float64(rank),
		"volume":       volume,
		"distance_pct": distPct,
		"volume_log":   math.Log1p(volume),
		"distance_log": math.Log1p(distPct),
		"rank_norm":    float64(rank) / 10.0,
	}
	// remaining schema columns are reserved placeholders, zero before and
	// after their log1p transforms

	names := s.model.FeatureNames()
	row := make([]float64, len(names))
	for i, name := range names {
		row[i] = values[name]
	}
	return row, nil
}
