package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseWithoutMarkersIsEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "Plain prose with no headers.\n\n- a list\n", "ROOT CORE SEEDS"} {
		doc := Parse(text)
		require.True(t, doc.Empty(), "text %q", text)
		require.Empty(t, doc.Sections)
	}
}

func TestParseSectionsKeepSourceOrder(t *testing.T) {
	text := "preamble\n🧠 CORE\ncore body\n🌱 ROOT\nroot body\n🌰 SEEDS\n1. Why?\n🍎 FRUIT\nfruit body\n🌿BRANCHES\nbranches body\n"

	doc := Parse(text)
	require.Equal(t, []SectionKey{SectionCore, SectionRoot, SectionSeeds, SectionFruit, SectionBranches}, doc.Keys())
	require.True(t, doc.Complete())

	for i, s := range doc.Sections {
		require.Equal(t, s.Key.Glyph(), s.Glyph)
		require.True(t, strings.HasPrefix(text[s.Offset:], s.Glyph))
		end := len(text)
		if i+1 < len(doc.Sections) {
			end = doc.Sections[i+1].Offset
		}
		require.Equal(t, text[s.BodyStart:end], s.Body)
	}

	core, ok := doc.Section(SectionCore)
	require.True(t, ok)
	require.Equal(t, "\ncore body\n", core.Body)
	require.Equal(t, []Block{Paragraph{Text: NewText("core body")}}, core.Blocks)

	seeds, ok := doc.Section(SectionSeeds)
	require.True(t, ok)
	require.Nil(t, seeds.Blocks)
	require.Equal(t, []Text{NewText("Why?")}, seeds.Questions)
}

func TestParseKeepsDuplicateSections(t *testing.T) {
	doc := Parse("🌱 ROOT\nfirst\n🌱 ROOT\nsecond")
	require.Len(t, doc.Sections, 2)
	require.Equal(t, "\nfirst\n", doc.Sections[0].Body)
	require.Equal(t, "\nsecond", doc.Sections[1].Body)

	first, ok := doc.Section(SectionRoot)
	require.True(t, ok)
	require.Equal(t, doc.Sections[0], first)
	require.False(t, doc.Complete())
}

func TestParseBodyLabelParagraphBullets(t *testing.T) {
	blocks := NewParser(Options{}).ParseBody("**Key Term**\nSome explanation.\n\n- item one\n- item two\n")
	require.Equal(t, []Block{
		DefinitionLabel{Label: NewText("Key Term")},
		Paragraph{Text: NewText("Some explanation.")},
		BulletList{Items: []Text{NewText("item one"), NewText("item two")}},
	}, blocks)
}

func TestParseBodyParagraphJoining(t *testing.T) {
	blocks := Parse("🌱 ROOT\nline one\n  line two  \n\n\nline three").Sections[0].Blocks
	require.Equal(t, []Block{
		Paragraph{Text: NewText("line one line two")},
		Paragraph{Text: NewText("line three")},
	}, blocks)
}

func TestDefinitionLabelVariants(t *testing.T) {
	p := NewParser(DefaultOptions())
	cases := map[string]string{
		"**Attention**":      "Attention",
		"**Attention**:":     "Attention",
		"**Attention:**":     "Attention",
		"**Self Attention**": "Self Attention",
	}
	for line, want := range cases {
		blocks := p.ParseBody(line)
		require.Equal(t, []Block{DefinitionLabel{Label: NewText(want)}}, blocks, line)
	}

	blocks := p.ParseBody("**Attention** lets tokens look around.")
	require.Len(t, blocks, 1)
	require.IsType(t, Paragraph{}, blocks[0])
}

func TestBulletRunProducesOneList(t *testing.T) {
	p := NewParser(DefaultOptions())
	for n := 1; n <= 6; n++ {
		var lines []string
		var want []Text
		for i := 0; i < n; i++ {
			marker := []string{"-", "•", "*"}[i%3]
			lines = append(lines, fmt.Sprintf("%s  item %d", marker, i))
			want = append(want, NewText(fmt.Sprintf("item %d", i)))
		}
		blocks := p.ParseBody(strings.Join(lines, "\n") + "\nafter")
		require.Equal(t, []Block{BulletList{Items: want}, Paragraph{Text: NewText("after")}}, blocks)
	}
}

func TestBulletNeedsWhitespaceAfterMarker(t *testing.T) {
	blocks := NewParser(DefaultOptions()).ParseBody("*emphasis* opens this line")
	require.Equal(t, []Block{Paragraph{Text: NewText("*emphasis* opens this line")}}, blocks)
}

func TestNumberedList(t *testing.T) {
	blocks := NewParser(DefaultOptions()).ParseBody("Steps:\n1. first\n2) second\n10. tenth\nDone.")
	require.Equal(t, []Block{
		Paragraph{Text: NewText("Steps:")},
		NumberedList{Items: []Text{NewText("first"), NewText("second"), NewText("tenth")}},
		Paragraph{Text: NewText("Done.")},
	}, blocks)
}

func TestIsDiagramLine(t *testing.T) {
	p := NewParser(DefaultOptions())

	require.False(t, p.IsDiagramLine(""))
	require.True(t, p.IsDiagramLine("Input → Model → Output"))
	require.True(t, p.IsDiagramLine("Any prose at all, even with punctuation! → and ↓ twice"))
	require.True(t, p.IsDiagramLine("[Query] → [Keys]"))
	require.True(t, p.IsDiagramLine("↓"))
	require.True(t, p.IsDiagramLine("│ box │"))
	require.False(t, p.IsDiagramLine("Hello → world!"))
	require.False(t, p.IsDiagramLine("This sentence mentions one arrow → but runs well past the sixty character limit"))
	require.False(t, p.IsDiagramLine("[Query] [Keys]"))
}

func TestDiagramRun(t *testing.T) {
	p := NewParser(DefaultOptions())

	blocks := p.ParseBody("Intro.\nA → B\n\n   ↓\n\nC → D\n\n\nAfter the diagram.")
	require.Equal(t, []Block{
		Paragraph{Text: NewText("Intro.")},
		Diagram{Source: "A → B\n\n   ↓\n\nC → D"},
		Paragraph{Text: NewText("After the diagram.")},
	}, blocks)

	blocks = p.ParseBody("x\n   [A] → [B]")
	require.Equal(t, []Block{
		Paragraph{Text: NewText("x")},
		Diagram{Source: "   [A] → [B]"},
	}, blocks)
}

func TestDiagramRunIsCapped(t *testing.T) {
	lines := make([]string, 25)
	for i := range lines {
		lines[i] = "──→──"
	}
	body := strings.Join(lines, "\n")

	blocks := NewParser(DefaultOptions()).ParseBody(body)
	require.Len(t, blocks, 2)
	require.Equal(t, strings.Join(lines[:20], "\n"), blocks[0].(Diagram).Source)
	require.Equal(t, strings.Join(lines[20:], "\n"), blocks[1].(Diagram).Source)

	blocks = NewParser(Options{DiagramMaxLines: 10}).ParseBody(body)
	require.Len(t, blocks, 3)
}

func TestDiagramBeforeBullet(t *testing.T) {
	blocks := NewParser(DefaultOptions()).ParseBody("- step → step → step")
	require.Equal(t, []Block{Diagram{Source: "- step → step → step"}}, blocks)
}

func TestParseQuestions(t *testing.T) {
	p := NewParser(DefaultOptions())

	five := "1. Q1\n2. Q2\n3. Q3\n4. Q4\n5. Q5"
	require.Equal(t, texts("Q1", "Q2", "Q3", "Q4", "Q5"), p.ParseQuestions(five))
	require.Equal(t, texts("Q1", "Q2", "Q3", "Q4", "Q5"), p.ParseQuestions(five+"\n6. Q6"))
	require.Equal(t, texts("Q1", "Q2", "Q3"), p.ParseQuestions("1. Q1\n2. Q2\n3. Q3"))

	require.Equal(t, texts("Intro text", "What is the thing?", "Another?"),
		p.ParseQuestions("Intro text\n\n1) What is\nthe thing?\n- Another?"))
	require.Equal(t, texts("* star line continues"), p.ParseQuestions("* star line\ncontinues"))
	require.Empty(t, p.ParseQuestions("\n \n"))
}

func TestParseQuestionsCustomLimit(t *testing.T) {
	p := NewParser(Options{MaxQuestions: 2})
	require.Equal(t, texts("a", "b"), p.ParseQuestions("1. a\n2. b\n3. c"))
}

func TestFormatInline(t *testing.T) {
	require.Equal(t, `<strong class="rl-term">a&lt;b</strong>`, FormatInline("**a<b**"))
	require.Equal(t, `Tom &amp; Jerry`, FormatInline("Tom & Jerry"))
	require.Equal(t,
		`<strong class="rl-term">bold</strong> and <em class="rl-em">it</em> with <code class="rl-code">x &gt; y</code>`,
		FormatInline("**bold** and *it* with `x > y`"))
	require.Equal(t, "no markers", FormatInline("no markers"))
	require.Equal(t, "bold it x", StripInline("**bold** *it* `x`"))
}

func TestFormattedTextInBlocks(t *testing.T) {
	blocks := NewParser(DefaultOptions()).ParseBody("Uses **attention** & more.")
	require.Equal(t, `Uses <strong class="rl-term">attention</strong> &amp; more.`, blocks[0].(Paragraph).Text.HTML)
}

func TestBlockJSONCarriesKind(t *testing.T) {
	data, err := json.Marshal(Paragraph{Text: NewText("hi")})
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"paragraph","text":{"raw":"hi","html":"hi"}}`, string(data))

	data, err = json.Marshal(Parse("🌿 BRANCHES\n**Term**\n→ → x"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"kind":"definition_label"`)
	require.Contains(t, string(data), `"kind":"diagram"`)
}

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(""))
	require.Equal(t, 10, EstimateTokens(strings.Repeat("a", 38)))
	require.Equal(t, 1, EstimateTokens("🌱"))
}

func TestSectionKeys(t *testing.T) {
	for i, key := range SectionKeys {
		require.Equal(t, i+1, key.Ordinal())
		require.NotEmpty(t, key.Glyph())
		parsed, err := ParseSectionKey(strings.ToLower(key.String()))
		require.NoError(t, err)
		require.Equal(t, key, parsed)
	}
	require.Equal(t, "SECTION 02 / 05", SectionCore.Heading())

	_, err := ParseSectionKey("leaves")
	require.Error(t, err)
	require.Equal(t, 0, SectionKey("LEAVES").Ordinal())
}

func TestParseUnicodeWhitespace(t *testing.T) {
	doc := Parse("🌱\u00a0ROOT\nbody\n🧠\u2003CORE\n-\u00a0item one\n-\u00a0item two\n")
	require.Equal(t, []SectionKey{SectionRoot, SectionCore}, doc.Keys())

	core, ok := doc.Section(SectionCore)
	require.True(t, ok)
	require.Equal(t, []Block{BulletList{Items: texts("item one", "item two")}}, core.Blocks)
}

func TestParseBodyStripsByteOrderMarks(t *testing.T) {
	blocks := NewParser(Options{}).ParseBody("\ufeff- alpha\n\ufeff- beta\n\ufeff1. one\n\ufeff**Term**\ufeff\n\ufeffplain\ufeff")
	require.Equal(t, []Block{
		BulletList{Items: texts("alpha", "beta")},
		NumberedList{Items: texts("one")},
		DefinitionLabel{Label: NewText("Term")},
		Paragraph{Text: NewText("plain")},
	}, blocks)
}

func TestParseQuestionsUnicodeWhitespace(t *testing.T) {
	questions := NewParser(Options{}).ParseQuestions("1.\u00a0Why?\n\ufeff-\u202fHow?\v")
	require.Equal(t, texts("Why?", "How?"), questions)
}

func texts(values ...string) []Text {
	out := make([]Text, 0, len(values))
	for _, v := range values {
		out = append(out, NewText(v))
	}
	return out
}
