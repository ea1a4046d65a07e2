package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type UtilsTestSuite struct {
	suite.Suite
	dir string
}

func TestUtilsSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func (suite *UtilsTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

func (suite *UtilsTestSuite) TestWriteFileAtomicReplaces() {
	path := filepath.Join(suite.dir, "plan.json")
	suite.Require().NoError(os.WriteFile(path, []byte("old"), 0o644))

	suite.Require().NoError(WriteFileAtomic(path, []byte("new")))

	data, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Equal("new", string(data))

	entries, err := os.ReadDir(suite.dir)
	suite.Require().NoError(err)
	suite.Len(entries, 1, "no temp file is left behind")
}

func (suite *UtilsTestSuite) TestWriteFileAtomicMissingDir() {
	err := WriteFileAtomic(filepath.Join(suite.dir, "missing", "plan.json"), []byte("x"))
	suite.Error(err)
}

func (suite *UtilsTestSuite) TestTailLines() {
	lines := make([]string, 0, 10)
	for i := 1; i <= 10; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}

	path := filepath.Join(suite.dir, "scan.log")
	suite.Require().NoError(os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	tail, err := TailLines(path, 3)
	suite.Require().NoError(err)
	suite.Equal([]string{"line 8", "line 9", "line 10"}, tail)

	all, err := TailLines(path, 50)
	suite.Require().NoError(err)
	suite.Len(all, 10)

	none, err := TailLines(path, 0)
	suite.Require().NoError(err)
	suite.Empty(none)
}

func (suite *UtilsTestSuite) TestTailLinesMissingFile() {
	_, err := TailLines(filepath.Join(suite.dir, "nope.log"), 5)
	suite.Error(err)
}
