package model

import "time"

// Policy represents an insurance policy attached to a vehicle. At most one
// policy per vehicle is active at any time; activation of one policy
// deactivates the rest inside the same transaction.
type Policy struct {
	ID             int64      `json:"id"`
	VehicleID      int64      `json:"vehicle_id"`
	Number         string     `json:"policy_number"`
	Insurer        string     `json:"insurer"`
	CoverageType   *string    `json:"coverage_type,omitempty"`
	StartDate      time.Time  `json:"start_date"`
	ExpirationDate time.Time  `json:"expiration_date"`
	CoverageAmount *float64   `json:"coverage_amount,omitempty"`
	AnnualPremium  *float64   `json:"annual_premium,omitempty"`
	Deductible     *float64   `json:"deductible,omitempty"`
	Beneficiary    *string    `json:"beneficiary,omitempty"`
	Observations   *string    `json:"observations,omitempty"`
	Filename       *string    `json:"filename,omitempty"`
	StoragePath    *string    `json:"storage_path,omitempty"`
	Active         bool       `json:"active"`
	CreatedBy      int64      `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`

	// Derived at read time from the current date; never stored.
	DaysUntilExpiry int    `json:"days_until_expiry"`
	Status          string `json:"status"`

	DownloadURL string `json:"download_url,omitempty"`
}

// HasFile reports whether the policy carries an uploaded file.
func (p *Policy) HasFile() bool {
	return p.Filename != nil && p.StoragePath != nil
}

// PolicyInput carries the fields for creating a policy. Active defaults to
// true when nil.
type PolicyInput struct {
	Number         string
	Insurer        string
	CoverageType   *string
	StartDate      time.Time
	ExpirationDate time.Time
	CoverageAmount *float64
	AnnualPremium  *float64
	Deductible     *float64
	Beneficiary    *string
	Observations   *string
	Active         *bool
}

// PolicyPatch is the closed set of updatable policy fields; nil means
// unchanged. Setting Active to true triggers the deactivation sweep for the
// vehicle's other policies.
type PolicyPatch struct {
	Number         *string
	Insurer        *string
	CoverageType   *string
	StartDate      *time.Time
	ExpirationDate *time.Time
	CoverageAmount *float64
	AnnualPremium  *float64
	Deductible     *float64
	Beneficiary    *string
	Observations   *string
	Active         *bool
	NewFile        *UploadedFile
}

// IsZero reports whether the patch changes nothing.
func (p PolicyPatch) IsZero() bool {
	return p.Number == nil && p.Insurer == nil && p.CoverageType == nil &&
		p.StartDate == nil && p.ExpirationDate == nil && p.CoverageAmount == nil &&
		p.AnnualPremium == nil && p.Deductible == nil && p.Beneficiary == nil &&
		p.Observations == nil && p.Active == nil && p.NewFile == nil
}

// ExpiringPolicy is a policy joined with vehicle identification fields for
// the expiry alert listing.
type ExpiringPolicy struct {
	Policy

	VehicleUnit   string `json:"vehicle_unit"`
	VehiclePlates string `json:"vehicle_plates"`
	VehicleMake   string `json:"vehicle_make"`
	VehicleModel  string `json:"vehicle_model"`
	VehicleInfo   string `json:"vehicle_info"`
}

// PolicySummary is the policy side of the per-vehicle attachment summary.
// NextExpiration considers only policies that have not yet expired.
type PolicySummary struct {
	Count          int        `json:"count"`
	Active         int        `json:"active"`
	NextExpiration *time.Time `json:"next_expiration,omitempty"`
}

// VehicleAttachmentStats are the per-vehicle attachment counters.
type VehicleAttachmentStats struct {
	TotalDocuments  int `json:"total_documents"`
	TotalPolicies   int `json:"total_policies"`
	ActivePolicies  int `json:"active_policies"`
	ExpiringSoon    int `json:"policies_expiring_soon"`
}

// VehicleAttachmentSummary combines per-type document counts with the policy
// rollup for a vehicle.
type VehicleAttachmentSummary struct {
	Documents []DocumentTypeCount `json:"documents"`
	Policies  PolicySummary       `json:"policies"`
}
