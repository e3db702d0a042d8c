package headline

import (
	"testing"

	"github.com/dgallion1/orgtree/internal/outline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	ctx := DefaultContext()
	tests := []struct {
		name string
		text string
		want Headline
	}{
		{
			name: "plain",
			text: "* Title\n",
			want: Headline{Level: 1, Title: "Title"},
		},
		{
			name: "all heading fields",
			text: "** TODO [#A] Write report   :work:urgent:\nbody\n",
			want: Headline{Level: 2, Keyword: "TODO", Priority: 'A', Title: "Write report", Tags: []string{"work", "urgent"}, Body: "body\n"},
		},
		{
			name: "unknown keyword stays in title",
			text: "* NEXT thing\n",
			want: Headline{Level: 1, Title: "NEXT thing"},
		},
		{
			name: "commented",
			text: "* DONE COMMENT old idea\n",
			want: Headline{Level: 1, Keyword: "DONE", Commented: true, Title: "old idea"},
		},
		{
			name: "comment prefix inside word",
			text: "* COMMENTARY\n",
			want: Headline{Level: 1, Title: "COMMENTARY"},
		},
		{
			name: "bad tag char keeps title",
			text: "* Title :not-a-tag:\n",
			want: Headline{Level: 1, Title: "Title :not-a-tag:"},
		},
		{
			name: "empty tags dropped",
			text: "* T :a::b:\n",
			want: Headline{Level: 1, Title: "T", Tags: []string{"a", "b"}},
		},
		{
			name: "planning line",
			text: "* TODO Ship\nDEADLINE: <2024-05-01 Wed> SCHEDULED: <2024-04-20 Sat>\nnotes\n",
			want: Headline{
				Level:    1,
				Keyword:  "TODO",
				Title:    "Ship",
				Planning: Planning{Deadline: "<2024-05-01 Wed>", Scheduled: "<2024-04-20 Sat>"},
				Body:     "notes\n",
			},
		},
		{
			name: "planning range",
			text: "* Trip\n  CLOSED: [2024-01-01]--[2024-01-03]\n",
			want: Headline{Level: 1, Title: "Trip", Planning: Planning{Closed: "[2024-01-01]--[2024-01-03]"}},
		},
		{
			name: "text after planning makes it body",
			text: "* T\nDEADLINE: <2024-05-01> later\n",
			want: Headline{Level: 1, Title: "T", Body: "DEADLINE: <2024-05-01> later\n"},
		},
		{
			name: "no terminator",
			text: "* Only",
			want: Headline{Level: 1, Title: "Only"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text, ctx)
			require.NoError(t, err)
			assert.True(t, equalFields(tt.want, got), "got %+v", got)
		})
	}

	_, err := Parse("body\n", ctx)
	assert.ErrorIs(t, err, ErrNotHeadline)
}

func TestRenderKeepsUntouchedLines(t *testing.T) {
	text := "** TODO   Aligned title        :tag:\n  SCHEDULED: <2024-04-20 Sat>\nbody\n"
	h, err := Parse(text, DefaultContext())
	require.NoError(t, err)

	out, err := h.Render(DefaultContext())
	require.NoError(t, err)
	assert.Equal(t, text, out)

	h.Keyword = "DONE"
	out, err = h.Render(DefaultContext())
	require.NoError(t, err)
	assert.Equal(t, "** DONE Aligned title :tag:\n  SCHEDULED: <2024-04-20 Sat>\nbody\n", out)

	h.Planning.Closed = "[2024-04-21 Sun]"
	out, err = h.Render(DefaultContext())
	require.NoError(t, err)
	assert.Equal(t, "** DONE Aligned title :tag:\nCLOSED: [2024-04-21 Sun] SCHEDULED: <2024-04-20 Sat>\nbody\n", out)
}

func TestRenderRejects(t *testing.T) {
	ctx := ParseKeywords("TODO:NEXT:DONE")
	base := Headline{Level: 1, Title: "x"}

	tests := []struct {
		name   string
		modify func(h *Headline)
		want   error
	}{
		{"level", func(h *Headline) { h.Level = 0 }, ErrInvalidLevel},
		{"keyword", func(h *Headline) { h.Keyword = "WAIT" }, ErrInvalidKeyword},
		{"priority", func(h *Headline) { h.Priority = 'a' }, ErrInvalidPriority},
		{"tag", func(h *Headline) { h.Tags = []string{"a b"} }, ErrInvalidTags},
		{"title newline", func(h *Headline) { h.Title = "a\nb" }, ErrInvalidTitle},
		{"planning", func(h *Headline) { h.Planning.Deadline = "tomorrow" }, ErrInvalidPlanning},
		{"body heading", func(h *Headline) { h.Body = "text\n* Sneaky\n" }, ErrInvalidBody},
		{"title reads as keyword", func(h *Headline) { h.Title = "NEXT up" }, ErrNonEquivalentReparse},
		{"body reads as planning", func(h *Headline) { h.Body = "DEADLINE: <2024-01-01>\n" }, ErrNonEquivalentReparse},
		{"title reads as tags", func(h *Headline) { h.Title = "x :y:" }, ErrNonEquivalentReparse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := base
			tt.modify(&h)
			_, err := h.Render(ctx)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRenderCanonical(t *testing.T) {
	h := Headline{Level: 3, Keyword: "TODO", Priority: 'B', Commented: true, Title: "Refactor", Tags: []string{"code"}}
	out, err := h.Render(DefaultContext())
	require.NoError(t, err)
	assert.Equal(t, "*** TODO [#B] COMMENT Refactor :code:\n", out)

	empty := Headline{Level: 1}
	out, err = empty.Render(DefaultContext())
	require.NoError(t, err)
	assert.Equal(t, "* \n", out)
}

func TestTagHelpers(t *testing.T) {
	h := Headline{Level: 1, Title: "t", Tags: []string{"a", "b", "a"}}
	h.CanonicalTags()
	assert.Equal(t, []string{"a", "b"}, h.Tags)
	h.AddTags("b", "c")
	assert.Equal(t, []string{"a", "b", "c"}, h.Tags)
	h.RemoveTag("a")
	assert.Equal(t, []string{"b", "c"}, h.Tags)
	assert.True(t, h.HasTag("c"))
}

func TestReadWrite(t *testing.T) {
	a := outline.NewArena()
	doc, err := a.Parse("intro\n* TODO Task :x:\nbody\n** Sub\n* Other\n")
	require.NoError(t, err)
	task, _ := doc.Root().FirstChild()

	_, err = Read(doc.Root(), DefaultContext())
	assert.ErrorIs(t, err, ErrNotHeadline)

	h, err := Read(task, DefaultContext())
	require.NoError(t, err)
	assert.Equal(t, "Task", h.Title)

	h.Keyword = "DONE"
	h.Planning.Closed = "[2024-06-01 Sat 10:00]"
	require.NoError(t, Write(task, h, DefaultContext()))
	assert.Equal(t, "intro\n* DONE Task :x:\nCLOSED: [2024-06-01 Sat 10:00]\nbody\n** Sub\n* Other\n", doc.Emit())

	h.Body = "body\n* Injected\n"
	assert.ErrorIs(t, Write(task, h, DefaultContext()), ErrInvalidBody)

	h.Body = "body\n"
	h.Level = 2
	assert.ErrorIs(t, Write(task, h, DefaultContext()), outline.ErrStructureViolation, "child is at level 2")
	assert.Equal(t, 1, task.Level())

	other, _ := task.NextSibling()
	oh, err := Read(other, DefaultContext())
	require.NoError(t, err)
	oh.Level = 4
	require.NoError(t, Write(other, oh, DefaultContext()))
	assert.Equal(t, "**** Other\n", other.Raw())
	require.NoError(t, doc.Root().Check())
}

func TestWriteKeepsMissingTerminator(t *testing.T) {
	doc, err := outline.NewArena().Parse("intro\n* A")
	require.NoError(t, err)
	a, _ := doc.Root().FirstChild()

	h, err := Read(a, DefaultContext())
	require.NoError(t, err)
	require.NoError(t, Write(a, h, DefaultContext()))
	assert.Equal(t, "* A", a.Raw())
	assert.Equal(t, "intro\n* A", doc.Emit())

	h.Keyword = "TODO"
	require.NoError(t, Write(a, h, DefaultContext()))
	assert.Equal(t, "* TODO A", a.Raw())

	h.Body = "notes\n"
	require.NoError(t, Write(a, h, DefaultContext()))
	assert.Equal(t, "* TODO A\nnotes\n", a.Raw())

	crlf, err := Parse("* B\r", DefaultContext())
	require.NoError(t, err)
	out, err := crlf.Render(DefaultContext())
	require.NoError(t, err)
	assert.Equal(t, "* B\r", out)
}

func TestProperties(t *testing.T) {
	body := ":PROPERTIES:\n:ID: abc\n:EFFORT:   2h\n:END:\nnotes\n"
	h := Headline{Level: 1, Title: "t", Body: body}

	props, err := Drawer{}.Properties(body)
	require.NoError(t, err)
	assert.Equal(t, []Property{{Key: "ID", Value: "abc"}, {Key: "EFFORT", Value: "2h"}}, props)

	v, ok, err := h.Property(Drawer{}, "effort")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2h", v)

	require.NoError(t, h.SetProperty(Drawer{}, "EFFORT", "3h"))
	assert.Equal(t, ":PROPERTIES:\n:ID: abc\n:EFFORT: 3h\n:END:\nnotes\n", h.Body)

	require.NoError(t, h.SetProperty(Drawer{}, "OWNER", "sam"))
	assert.Equal(t, ":PROPERTIES:\n:ID: abc\n:EFFORT: 3h\n:OWNER: sam\n:END:\nnotes\n", h.Body)

	bare := Headline{Level: 1, Title: "t", Body: "notes\n"}
	require.NoError(t, bare.SetProperty(Drawer{}, "ID", "1"))
	assert.Equal(t, ":PROPERTIES:\n:ID: 1\n:END:\nnotes\n", bare.Body)

	assert.ErrorIs(t, h.SetProperty(Drawer{}, "two words", "x"), ErrInvalidProperty)
	assert.ErrorIs(t, h.SetProperty(Drawer{}, "K", "a\nb"), ErrInvalidProperty)

	_, _, err = h.Property(Absent{}, "ID")
	assert.ErrorIs(t, err, ErrNoPropertiesParser)

	for _, notDrawer := range []string{
		":PROPERTIES:\n:ID: 1\nno end\n",
		":PROPERTIES:\n:ID: 1\nloose text\n:END:\n",
		"notes\n:PROPERTIES:\n:ID: 1\n:END:\n",
	} {
		props, err = Drawer{}.Properties(notDrawer)
		require.NoError(t, err)
		assert.Empty(t, props, "%q", notDrawer)
	}
}

func TestClearProperty(t *testing.T) {
	h := Headline{Level: 1, Title: "t", Body: ":PROPERTIES:\n:ID: abc\n:OWNER: sam\n:END:\nnotes\n"}

	require.NoError(t, h.ClearProperty(Drawer{}, "missing"))
	assert.Equal(t, ":PROPERTIES:\n:ID: abc\n:OWNER: sam\n:END:\nnotes\n", h.Body)

	require.NoError(t, h.ClearProperty(Drawer{}, "owner"))
	assert.Equal(t, ":PROPERTIES:\n:ID: abc\n:END:\nnotes\n", h.Body)

	require.NoError(t, h.ClearProperty(Drawer{}, "ID"))
	assert.Equal(t, "notes\n", h.Body)

	require.NoError(t, h.ClearProperty(Drawer{}, "ID"))
	assert.Equal(t, "notes\n", h.Body)

	assert.ErrorIs(t, h.ClearProperty(Absent{}, "ID"), ErrNoPropertiesParser)
}

func TestSetProperties(t *testing.T) {
	h := Headline{Level: 1, Title: "t", Body: ":PROPERTIES:\n:ID: abc\n:END:\nnotes\n"}

	require.NoError(t, h.SetProperties(Drawer{}, []Property{{Key: "OWNER", Value: "sam"}, {Key: "EFFORT", Value: "1h"}}))
	assert.Equal(t, ":PROPERTIES:\n:OWNER: sam\n:EFFORT: 1h\n:END:\nnotes\n", h.Body)
	props, err := Drawer{}.Properties(h.Body)
	require.NoError(t, err)
	assert.Equal(t, []Property{{Key: "OWNER", Value: "sam"}, {Key: "EFFORT", Value: "1h"}}, props)

	err = h.SetProperties(Drawer{}, []Property{{Key: "A", Value: "1"}, {Key: "bad key", Value: "2"}})
	assert.ErrorIs(t, err, ErrInvalidProperty)
	assert.Equal(t, ":PROPERTIES:\n:OWNER: sam\n:EFFORT: 1h\n:END:\nnotes\n", h.Body)

	require.NoError(t, h.SetProperties(Drawer{}, nil))
	assert.Equal(t, "notes\n", h.Body)

	bare := Headline{Level: 1, Title: "t"}
	require.NoError(t, bare.SetProperties(Drawer{}, []Property{{Key: "CATEGORY", Value: ""}}))
	assert.Equal(t, ":PROPERTIES:\n:CATEGORY:\n:END:\n", bare.Body)
	v, ok, err := bare.Property(Drawer{}, "category")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, v)

	assert.ErrorIs(t, bare.SetProperties(Absent{}, nil), ErrNoPropertiesParser)
}

func TestGenerateID(t *testing.T) {
	h := Headline{Level: 1, Title: "t", Body: "notes\n"}
	id, err := h.GenerateID(Drawer{})
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, id)
	assert.Equal(t, ":PROPERTIES:\n:ID: "+id+"\n:END:\nnotes\n", h.Body)

	again, err := h.GenerateID(Drawer{})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	other := Headline{Level: 1, Title: "u"}
	otherID, err := other.GenerateID(Drawer{})
	require.NoError(t, err)
	assert.NotEqual(t, id, otherID)

	kept := Headline{Level: 1, Title: "k", Body: ":PROPERTIES:\n:ID: fixed\n:END:\n"}
	id, err = kept.GenerateID(Drawer{})
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)

	_, err = kept.GenerateID(Absent{})
	assert.ErrorIs(t, err, ErrNoPropertiesParser)
}
