package inspect

import (
	"sort"
	"strings"

	"github.com/anirudhraja/tagwire/wire"
)

// MemberSize is the encoded payload size of one struct member. Bytes excludes
// the member's tag and tag id.
type MemberSize struct {
	Path  string
	TagID int32
	Type  wire.WireDataType
	Bytes int
}

// Sizes reports the payload size of every member in data, nested members
// included, in document order. Paths look like "1.99" or "3[2].4".
func Sizes(data []byte, cfg wire.Config) ([]MemberSize, error) {
	p := wire.NewParser(data, cfg)
	s := &sizer{parser: p}
	if err := p.Parse(s); err != nil {
		return nil, err
	}
	return s.sizes, nil
}

// TopMembers returns the n largest top-level members of sizes, largest first.
func TopMembers(sizes []MemberSize, n int) []MemberSize {
	top := make([]MemberSize, 0, len(sizes))
	for _, s := range sizes {
		if !strings.ContainsAny(s.Path, ".[") {
			top = append(top, s)
		}
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Bytes > top[j].Bytes })
	if n >= 0 && len(top) > n {
		top = top[:n]
	}
	return top
}

type sizer struct {
	wire.NopHandler
	parser *wire.Parser
	open   []int // indexes into sizes of the members being parsed
	sizes  []MemberSize
}

func (s *sizer) OnBeginMember(t wire.WireDataType, tagID int32) error {
	s.open = append(s.open, len(s.sizes))
	s.sizes = append(s.sizes, MemberSize{
		Path:  wire.FormatPath(s.parser.Path()),
		TagID: tagID,
		Type:  t,
		Bytes: s.parser.Offset(),
	})
	return nil
}

func (s *sizer) OnEndMember(wire.WireDataType, int32) error {
	i := s.open[len(s.open)-1]
	s.open = s.open[:len(s.open)-1]
	s.sizes[i].Bytes = s.parser.Offset() - s.sizes[i].Bytes
	return nil
}
