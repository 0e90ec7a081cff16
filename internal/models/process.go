package models

// ProcessResults is the summary the backend returns after ingesting a sheet
type ProcessResults struct {
	Date                string  `json:"date" yaml:"date"`
	TotalRecords        int64   `json:"total_records" yaml:"total_records"`
	NewRecords          int64   `json:"new_records" yaml:"new_records"`
	UpdatedRecords      int64   `json:"updated_records" yaml:"updated_records"`
	DailyTotalSales     float64 `json:"daily_total_sales" yaml:"daily_total_sales"`
	DailyTotalPurchases float64 `json:"daily_total_purchases" yaml:"daily_total_purchases"`
	FileName            string  `json:"file_name" yaml:"file_name"`
}

// ProcessResponse is the body of POST /process
type ProcessResponse struct {
	Results *ProcessResults `json:"results,omitempty"`
	Logs    []string        `json:"logs,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Envelope is embedded by every response that may carry an application
// error or a "no data" warning instead of a payload.
type Envelope struct {
	Logs    []string `json:"logs,omitempty"`
	Warning string   `json:"warning,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// DeleteResponse is the body of DELETE /delete/{name}
type DeleteResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
