package port

// ScoringModel is the trained classifier consumed as an opaque artifact.
// PredictProba takes a feature matrix (one row per candidate, columns in the
// model's declared feature order) and returns per-row class probabilities.
// Class 2 is the "good entry" class.
type ScoringModel interface {
	// FeatureNames returns the declared feature columns, in scoring order.
	FeatureNames() []string
	PredictProba(rows [][]float64) ([][]float64, error)
}

// FeatureSchema is the fixed set of columns the model was trained on. The
// cross-side and ratio columns are always-zero placeholders reserved for
// contextual signal; they stay in the vector because the artifact was trained
// with them and cannot lose columns without retraining. The derived log and
// normalized columns are computed from the base ones at scoring time.
//
// An artifact whose declared feature list is not exactly a permutation of
// this schema is rejected at load.
func FeatureSchema() []string {
	return []string{
		"is_long",
		"block_rank",
		"volume",
		"distance_pct",
		"vol_short_entry",
		"dist_short_entry",
		"vol_short_stop",
		"dist_short_stop",
		"vol_long_entry",
		"dist_long_entry",
		"vol_long_stop",
		"dist_long_stop",
		"vol_own_entry",
		"vol_own_stop",
		"dist_own_stop",
		"ratio_entry_stop",
		"ratio_long_short_entry",
		"ratio_short_long_entry",
		"volume_log",
		"distance_log",
		"rank_norm",
		"vol_own_entry_log",
		"vol_own_stop_log",
		"vol_short_entry_log",
		"vol_long_entry_log",
	}
}
