package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAccessors(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"brand":"Acme","mrp":"12.5","sales_qty":3,"week":null}`), &r))

	assert.Equal(t, "Acme", r.String("brand"))
	assert.Equal(t, "3", r.String("sales_qty"))
	assert.Equal(t, "", r.String("week"))
	assert.Equal(t, "", r.String("missing"))

	mrp, ok := r.Float("mrp")
	assert.True(t, ok)
	assert.InDelta(t, 12.5, mrp, 1e-9)

	_, ok = r.Float("brand")
	assert.False(t, ok)
}

func TestLocalFilesResponse_Decode(t *testing.T) {
	body := `{
		"daily_files": {"file_count": 3, "latest_files_info": [
			{"file": "march_01.xlsx", "rows": 120, "grand_total_date": "2024-03-01",
			 "columns": ["brand","MRP"], "created_at": "2024-03-01T10:00:00",
			 "sample": [{"record_id": 1, "brand": "Acme"}],
			 "stats": {"total_sales": 500, "total_purchases": 300, "unique_brands": 4, "unique_categories": 2}}
		]},
		"master_summary": {"status": "available", "row_count": 900}
	}`

	var resp LocalFilesResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))

	assert.Equal(t, 3, resp.DailyFiles.FileCount)
	require.Len(t, resp.DailyFiles.LatestFilesInfo, 1)
	f := resp.DailyFiles.LatestFilesInfo[0]
	assert.Equal(t, int64(120), f.Rows)
	require.NotNil(t, f.Stats)
	assert.Equal(t, int64(4), f.Stats.UniqueBrands)
	assert.True(t, resp.MasterSummary.Available())
	assert.Equal(t, int64(900), resp.MasterSummary.RowCount)
}
