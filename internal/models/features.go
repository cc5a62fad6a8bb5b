package models

// TenantFeatures are the feature flags the similarity service reports for the tenant.
type TenantFeatures struct {
	Tenant     TenantSettings     `json:"tenant"`
	Similarity SimilarityFeatures `json:"similarity"`
}

// TenantSettings holds tenant wide switches.
type TenantSettings struct {
	RequireEULA bool `json:"require_eula"`
}

// SimilarityFeatures lists similarity report capabilities.
type SimilarityFeatures struct {
	GenerationSettings GenerationFeatures `json:"generation_settings"`
}

// GenerationFeatures lists the repositories the tenant may search.
type GenerationFeatures struct {
	SearchRepositories []string `json:"search_repositories"`
}
