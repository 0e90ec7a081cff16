package testbackend

import (
	"net/http"

	"github.com/invdash/invdash/internal/models"
)

// SampleProcess is the default successful /process body.
func SampleProcess() models.ProcessResponse {
	return models.ProcessResponse{
		Results: &models.ProcessResults{
			Date:                "2024-03-01",
			TotalRecords:        120,
			NewRecords:          100,
			UpdatedRecords:      20,
			DailyTotalSales:     15400.5,
			DailyTotalPurchases: 9800.25,
			FileName:            "march_01.xlsx",
		},
		Logs: []string{
			"2024-03-01 10:00:00 - [INFO] Reading march_01.xlsx",
			"2024-03-01 10:00:01 - [WARNING] 3 rows missing MRP",
			"2024-03-01 10:00:02 - [INFO] Upserted 120 records",
		},
	}
}

// SamplePreview is the default /preview body.
func SamplePreview() models.PreviewResponse {
	return models.PreviewResponse{
		Data: []models.Record{
			{"brand": "Acme", "category": "Shirts", "size": "M", "mrp": 499.0, "color": "Blue",
				"sales_qty": 12.0, "purchase_qty": 20.0, "week": 9.0, "month": "March", "created_at": "2024-03-01T10:00:00"},
			{"brand": "Zenith", "category": "Shoes", "size": "42", "mrp": 1299.5, "color": nil,
				"sales_qty": 3.0, "purchase_qty": 5.0, "week": 9.0, "month": "March", "created_at": "2024-03-01T10:00:00"},
		},
		Metrics: models.PreviewMetrics{
			TotalRecords:       120,
			UniqueBrands:       8,
			UniqueCategories:   4,
			NeonTotalSales:     15400.5,
			NeonTotalPurchases: 9800.25,
		},
	}
}

// SampleVisualizations is the default /visualizations body.
func SampleVisualizations() models.VisualizationsResponse {
	return models.VisualizationsResponse{
		Visualizations: map[string]string{
			"brand":    `{"data":[{"type":"bar","x":["Acme","Zenith"],"y":[12,3]}],"layout":{"title":"Sales by Brand"}}`,
			"category": `{"data":[{"type":"pie","labels":["Shirts","Shoes"],"values":[12,3]}],"layout":{"title":"Sales by Category"}}`,
			"monthly":  `{"data":[{"type":"scatter","x":["2024-02","2024-03"],"y":[80,120]}],"layout":{"title":"Monthly Trend"}}`,
			"weekly":   `{"data":[{"type":"scatter","x":[8,9],"y":[30,45]}],"layout":{"title":"Weekly Trend"}}`,
		},
	}
}

// SampleLocalFiles is the default /local-files body.
func SampleLocalFiles() models.LocalFilesResponse {
	return models.LocalFilesResponse{
		DailyFiles: models.DailyFiles{
			FileCount: 3,
			LatestFilesInfo: []models.FileSummary{
				sampleFile("march_01.xlsx", "2024-03-01", 120),
				sampleFile("march_02.xlsx", "2024-03-02", 95),
				sampleFile("feb_28.xlsx", "2024-02-28", 80),
			},
		},
		MasterSummary: models.MasterSummary{
			Status:   models.MasterAvailable,
			RowCount: 295,
		},
	}
}

func sampleFile(name, date string, rows int64) models.FileSummary {
	return models.FileSummary{
		File:           name,
		Rows:           rows,
		GrandTotalDate: date,
		Columns:        []string{"record_id", "brand", "category", "MRP", "date"},
		CreatedAt:      date + "T10:00:00",
		Sample: []models.Record{
			{"record_id": 1.0, "brand": "Acme", "category": "Shirts", "MRP": 499.0, "date": date + "T00:00:00"},
		},
		Stats: &models.FileStats{
			TotalSales:       float64(rows) * 10,
			TotalPurchases:   float64(rows) * 6,
			UniqueBrands:     4,
			UniqueCategories: 2,
		},
	}
}

func defaultReplies() map[string]Reply {
	return map[string]Reply{
		RouteProcess:             {Status: http.StatusOK, Body: SampleProcess()},
		RoutePreview:             {Status: http.StatusOK, Body: SamplePreview()},
		RouteVisualizations:      {Status: http.StatusOK, Body: SampleVisualizations()},
		RouteVisualizationsRange: {Status: http.StatusOK, Body: SampleVisualizations()},
		RouteLocalFiles:          {Status: http.StatusOK, Body: SampleLocalFiles()},
		RouteDelete:              {Status: http.StatusOK, Body: models.DeleteResponse{Message: "File deleted"}},
		RouteGrandTotal:          {Status: http.StatusOK, Body: map[string]float64{"total_sales": 15400.5, "total_purchases": 9800.25}},
	}
}
