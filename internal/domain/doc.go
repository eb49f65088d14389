// Package domain models the French consolidated IRVE dataset (Infrastructures
// de Recharge pour Véhicules Électriques) and the queries answered from it.
//
// # Data Source
//
// Station records come from the Etalab consolidation of the IRVE static schema
// (v2.2.0), published as one large CSV on data.gouv.fr. Each row is a charging
// point (point de charge). The file is regenerated upstream; this service reads
// a full snapshot and never patches it incrementally.
//
// # IRVE Column Conventions
//
// Booleans:
//
//	Stored as text. Observed values are "true", "false", "TRUE", "False", empty,
//	and occasional free text. Only a case-insensitive exact "true" or "false"
//	is recognized; everything else becomes false. See [DeriveBool].
//
// Postal codes:
//
//	"consolidated_code_postal" is five digits in well-formed rows. The first two
//	characters identify the département ("75001" → "75"). Corsican codes start
//	with "20" while the département polygons use "2A"/"2B", so those rows land in
//	the unmatched bucket of [RegionReport]. Empty or one-character codes produce
//	the empty region code, which is counted as its own "unknown" bucket.
//
// Dates:
//
//	"date_mise_en_service" is ISO 8601 ("2021-03-04"). Rows with an empty or
//	unreadable date keep a nil CommissioningDate and are skipped by year-based
//	derivations only.
//
// Coordinates and power:
//
//	"consolidated_latitude", "consolidated_longitude" and "puissance_nominale"
//	are decimal numbers, sometimes written with a decimal comma. Unreadable,
//	NaN or infinite values become nil.
//
// # Known Limitations
//
// Boolean coercion is lossy: a missing connector flag is indistinguishable from
// an explicit "false". Consumers that need tri-state semantics must inspect the
// raw feed before normalization.
//
// Place search matches the place name against station names. It is not a
// distance query: a station called "Lyon Part-Dieu" in Paris matches "lyon".
// The geocoded point only centers the map.
package domain
