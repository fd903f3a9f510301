package domain

// MigrationReport summarizes a legacy-to-current module reconciliation
// run: how many legacy records were copied into the current generation and
// how many were skipped because their slug already exists there.
type MigrationReport struct {
	Copied  int `json:"copied"`
	Skipped int `json:"skipped"`
}
