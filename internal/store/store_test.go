// Package store tests the flat-file table mechanics: load tolerance,
// round-tripping, scoped queries and deletes.
package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/voicedesk/voicedesk/internal/model"
)

// StoreSuite is a test suite for prompt table operations.
type StoreSuite struct {
	suite.Suite
	path string
}

func (s *StoreSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "prompts.tbl")
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

// TestOpenCreatesHeaderOnlyFile tests that opening a missing path creates
// a fresh table.
func (s *StoreSuite) TestOpenCreatesHeaderOnlyFile() {
	tbl, err := OpenPrompts(s.path)
	s.Require().NoError(err)
	s.Equal(0, tbl.Len())

	data, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Equal(strings.Join(PromptColumns, fieldSep)+"\n", string(data))
}

// TestRoundTrip tests that save followed by a fresh open yields the same
// entity list, including fields containing literal newlines.
func (s *StoreSuite) TestRoundTrip() {
	tbl, err := OpenPrompts(s.path)
	s.Require().NoError(err)

	prompts := []model.Prompt{
		{Username: "dummy", Timestamp: 1, Type: model.TypeQuestion, Input: "what is go", Output: "a language"},
		{Username: "dummy", Timestamp: 2, Type: model.TypeEmailDraft, Input: "about lunch", Output: "Dear team,\nlunch is at noon.\nDummy User"},
		{Username: "bob", Timestamp: 3, Type: model.TypeSendEmail, Input: "abc@yahoo.com", Output: "line one\nline two"},
	}
	for _, p := range prompts {
		tbl.Create(p)
	}
	s.Require().NoError(tbl.Save())

	reopened, err := OpenPrompts(s.path)
	s.Require().NoError(err)
	got := reopened.QueryBy(func(model.Prompt) bool { return true })
	s.Equal(prompts, got)
}

// TestMalformedRowsSkipped tests that rows with the wrong field count or an
// unparsable timestamp are dropped at load without failing the open.
func (s *StoreSuite) TestMalformedRowsSkipped() {
	lines := []string{
		strings.Join(PromptColumns, fieldSep),
		strings.Join([]string{"dummy", "1", "QUESTION", "ok", "fine"}, fieldSep),
		strings.Join([]string{"dummy", "truncated"}, fieldSep),
		strings.Join([]string{"dummy", "not-a-number", "QUESTION", "bad", "row"}, fieldSep),
		"",
	}
	s.Require().NoError(os.WriteFile(s.path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	tbl, err := OpenPrompts(s.path)
	s.Require().NoError(err)
	s.Equal(1, tbl.Len())

	got := tbl.QueryBy(func(model.Prompt) bool { return true })
	s.Require().Len(got, 1)
	s.Equal(int64(1), got[0].Timestamp)
	s.Equal("ok", got[0].Input)
}

// TestDeleteByIdempotent tests that deleting a missing entry removes
// nothing and leaves the count unchanged.
func (s *StoreSuite) TestDeleteByIdempotent() {
	tbl, err := OpenPrompts(s.path)
	s.Require().NoError(err)
	tbl.Create(model.Prompt{Username: "dummy", Timestamp: 1, Type: model.TypeQuestion})

	removed := tbl.DeleteBy(func(p model.Prompt) bool { return p.Timestamp == 999 })
	s.Equal(0, removed)
	s.Equal(1, tbl.Len())

	removed = tbl.DeleteBy(func(p model.Prompt) bool { return p.Timestamp == 1 })
	s.Equal(1, removed)

	removed = tbl.DeleteBy(func(p model.Prompt) bool { return p.Timestamp == 1 })
	s.Equal(0, removed)
	s.Equal(0, tbl.Len())
}

// TestQueryAndDeleteScopedByUser tests per-user scoping: dummy's entries
// come back in insertion order and clearing dummy leaves bob intact.
func (s *StoreSuite) TestQueryAndDeleteScopedByUser() {
	tbl, err := OpenPrompts(s.path)
	s.Require().NoError(err)
	tbl.Create(model.Prompt{Username: "dummy", Timestamp: 1, Type: model.TypeQuestion})
	tbl.Create(model.Prompt{Username: "dummy", Timestamp: 2, Type: model.TypeQuestion})
	tbl.Create(model.Prompt{Username: "bob", Timestamp: 3, Type: model.TypeQuestion})

	dummies := tbl.QueryBy(func(p model.Prompt) bool { return p.Username == "dummy" })
	s.Require().Len(dummies, 2)
	s.Equal(int64(1), dummies[0].Timestamp)
	s.Equal(int64(2), dummies[1].Timestamp)

	removed := tbl.DeleteBy(func(p model.Prompt) bool { return p.Username == "dummy" })
	s.Equal(2, removed)

	rest := tbl.QueryBy(func(model.Prompt) bool { return true })
	s.Require().Len(rest, 1)
	s.Equal("bob", rest[0].Username)
}

// TestClearAllRecreatesFreshTable tests that clearAll removes the backing
// file and a subsequent open starts header-only.
func (s *StoreSuite) TestClearAllRecreatesFreshTable() {
	tbl, err := OpenPrompts(s.path)
	s.Require().NoError(err)
	tbl.Create(model.Prompt{Username: "dummy", Timestamp: 1, Type: model.TypeQuestion})
	s.Require().NoError(tbl.Save())

	s.Require().NoError(tbl.ClearAll())
	s.Equal(0, tbl.Len())
	_, err = os.Stat(s.path)
	s.True(os.IsNotExist(err))

	reopened, err := OpenPrompts(s.path)
	s.Require().NoError(err)
	s.Equal(0, reopened.Len())

	data, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Equal(strings.Join(PromptColumns, fieldSep)+"\n", string(data))
}

// TestClearAllIdempotent tests that clearing an already-cleared table is
// not an error.
func (s *StoreSuite) TestClearAllIdempotent() {
	tbl, err := OpenPrompts(s.path)
	s.Require().NoError(err)
	s.Require().NoError(tbl.ClearAll())
	s.Require().NoError(tbl.ClearAll())
}
