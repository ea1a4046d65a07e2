package writer

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/twstock-scanner/internal/types"
)

type DuckDBWriterTestSuite struct {
	suite.Suite
	tempDir string
}

func TestDuckDBWriterSuite(t *testing.T) {
	suite.Run(t, new(DuckDBWriterTestSuite))
}

func (suite *DuckDBWriterTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func (suite *DuckDBWriterTestSuite) bar(day int, closePrice float64) types.MarketData {
	return types.MarketData{
		Symbol: "2330",
		Time:   time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC),
		Open:   closePrice - 1,
		High:   closePrice + 2,
		Low:    closePrice - 3,
		Close:  closePrice,
		Volume: 1000,
	}
}

type storedRow struct {
	day   time.Time
	close float64
}

func (suite *DuckDBWriterTestSuite) readBack(path string) []storedRow {
	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)
	defer db.Close()

	rows, err := db.Query(fmt.Sprintf("SELECT time, close FROM read_parquet('%s') ORDER BY time", path))
	suite.Require().NoError(err)
	defer rows.Close()

	var out []storedRow

	for rows.Next() {
		var r storedRow
		suite.Require().NoError(rows.Scan(&r.day, &r.close))
		out = append(out, r)
	}

	suite.Require().NoError(rows.Err())

	return out
}

func (suite *DuckDBWriterTestSuite) writeAll(path string, bars ...types.MarketData) {
	w := NewDuckDBWriter(path)
	suite.Require().NoError(w.Initialize())

	defer w.Close()

	for _, b := range bars {
		suite.Require().NoError(w.Write(b))
	}

	out, err := w.Finalize()
	suite.Require().NoError(err)
	suite.Equal(path, out)
}

func (suite *DuckDBWriterTestSuite) TestNewDuckDBWriter() {
	outputPath := filepath.Join(suite.tempDir, "2330_history.parquet")
	writer := NewDuckDBWriter(outputPath)

	duckWriter, ok := writer.(*DuckDBWriter)
	suite.True(ok)
	suite.Equal(outputPath, duckWriter.GetOutputPath())
	suite.Nil(duckWriter.db)
	suite.Nil(duckWriter.tx)
	suite.Nil(duckWriter.stmt)
}

func (suite *DuckDBWriterTestSuite) TestWriteWithoutInitialize() {
	writer := NewDuckDBWriter(filepath.Join(suite.tempDir, "x.parquet"))

	err := writer.Write(suite.bar(3, 100))
	suite.Error(err)
	suite.Contains(err.Error(), "not initialized")

	_, err = writer.Finalize()
	suite.Error(err)
	suite.Contains(err.Error(), "not initialized")

	_, err = writer.LastDate()
	suite.Error(err)
}

func (suite *DuckDBWriterTestSuite) TestLastDateOnEmptyHistory() {
	writer := NewDuckDBWriter(filepath.Join(suite.tempDir, "new.parquet"))
	suite.Require().NoError(writer.Initialize())

	defer writer.Close()

	last, err := writer.LastDate()
	suite.NoError(err)
	suite.True(last.IsNone())
}

func (suite *DuckDBWriterTestSuite) TestFinalizeWritesSortedFile() {
	path := filepath.Join(suite.tempDir, "2330_history.parquet")
	suite.writeAll(path, suite.bar(5, 105), suite.bar(3, 103), suite.bar(4, 104))

	rows := suite.readBack(path)
	suite.Require().Len(rows, 3)
	suite.InDelta(103.0, rows[0].close, 1e-9)
	suite.InDelta(105.0, rows[2].close, 1e-9)

	_, err := os.Stat(path + ".tmp")
	suite.True(os.IsNotExist(err))
}

func (suite *DuckDBWriterTestSuite) TestIncrementalMergeReplacesSameDay() {
	path := filepath.Join(suite.tempDir, "2330_history.parquet")
	suite.writeAll(path, suite.bar(3, 103), suite.bar(4, 104))

	w := NewDuckDBWriter(path)
	suite.Require().NoError(w.Initialize())

	defer w.Close()

	last, err := w.LastDate()
	suite.Require().NoError(err)
	suite.True(last.IsSome())
	suite.Equal(time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), last.Unwrap().UTC())

	// a corrected bar for the 4th and a new bar for the 5th
	suite.Require().NoError(w.Write(suite.bar(4, 110)))
	suite.Require().NoError(w.Write(suite.bar(5, 111)))

	_, err = w.Finalize()
	suite.Require().NoError(err)

	rows := suite.readBack(path)
	suite.Require().Len(rows, 3)
	suite.InDelta(103.0, rows[0].close, 1e-9)
	suite.InDelta(110.0, rows[1].close, 1e-9)
	suite.InDelta(111.0, rows[2].close, 1e-9)
}

func (suite *DuckDBWriterTestSuite) TestWriteAfterFinalize() {
	w := NewDuckDBWriter(filepath.Join(suite.tempDir, "after.parquet"))
	suite.Require().NoError(w.Initialize())

	defer w.Close()

	suite.Require().NoError(w.Write(suite.bar(3, 100)))

	_, err := w.Finalize()
	suite.Require().NoError(err)

	suite.Error(w.Write(suite.bar(4, 101)))

	_, err = w.Finalize()
	suite.Error(err)
}

func (suite *DuckDBWriterTestSuite) TestFinalizeExportError() {
	w := NewDuckDBWriter(filepath.Join(suite.tempDir, "missing", "dir", "out.parquet"))
	suite.Require().NoError(w.Initialize())

	defer w.Close()

	suite.Require().NoError(w.Write(suite.bar(3, 100)))

	_, err := w.Finalize()
	suite.Error(err)
	suite.Contains(err.Error(), "failed to export to Parquet")
}

func (suite *DuckDBWriterTestSuite) TestDoubleClose() {
	w := NewDuckDBWriter(filepath.Join(suite.tempDir, "close.parquet"))
	suite.Require().NoError(w.Initialize())

	suite.NoError(w.Close())
	suite.NoError(w.Close())
}
