package models

// FileStats are the per-file aggregates shown in the details view
type FileStats struct {
	TotalSales       float64 `json:"total_sales" yaml:"total_sales"`
	TotalPurchases   float64 `json:"total_purchases" yaml:"total_purchases"`
	UniqueBrands     int64   `json:"unique_brands" yaml:"unique_brands"`
	UniqueCategories int64   `json:"unique_categories" yaml:"unique_categories"`
}

// FileSummary describes one processed daily file
type FileSummary struct {
	File           string     `json:"file" yaml:"file"`
	Rows           int64      `json:"rows" yaml:"rows"`
	GrandTotalDate string     `json:"grand_total_date,omitempty" yaml:"grand_total_date,omitempty"`
	Columns        []string   `json:"columns,omitempty" yaml:"columns,omitempty"`
	CreatedAt      string     `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Sample         []Record   `json:"sample,omitempty" yaml:"-"`
	Stats          *FileStats `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Master summary availability
const (
	MasterAvailable = "available"
	MasterMissing   = "missing"
)

// MasterSummary describes the aggregate workbook
type MasterSummary struct {
	Status         string     `json:"status" yaml:"status"`
	RowCount       int64      `json:"row_count" yaml:"row_count"`
	GrandTotalDate string     `json:"grand_total_date,omitempty" yaml:"grand_total_date,omitempty"`
	Columns        []string   `json:"columns,omitempty" yaml:"columns,omitempty"`
	CreatedAt      string     `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Sample         []Record   `json:"sample,omitempty" yaml:"-"`
	Stats          *FileStats `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Available reports whether the backend found the master workbook.
func (m MasterSummary) Available() bool {
	return m.Status == MasterAvailable
}

// DailyFiles is the daily part of the /local-files listing
type DailyFiles struct {
	FileCount       int           `json:"file_count"`
	LatestFilesInfo []FileSummary `json:"latest_files_info"`
}

// LocalFilesResponse is the body of GET /local-files
type LocalFilesResponse struct {
	DailyFiles    DailyFiles    `json:"daily_files"`
	MasterSummary MasterSummary `json:"master_summary"`
	Error         string        `json:"error,omitempty"`
}
