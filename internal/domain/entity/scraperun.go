package entity

// Trigger names what kicked off a scrape run.
type Trigger string

const (
	TriggerAPI      Trigger = "api"
	TriggerSchedule Trigger = "schedule"
)

// ScrapeRun is the logical identity shared by every log line and metric
// emitted during one end-to-end scrape for one brand.
type ScrapeRun struct {
	ID      string // "{brand_id}-{8-char random}"
	BrandID int64
	Trigger Trigger
}
