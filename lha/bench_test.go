package lha

import (
	"strconv"
	"strings"
	"testing"
)

func benchInput(blocks, rows int) []string {
	var sb strings.Builder
	for b := 0; b < blocks; b++ {
		sb.WriteString("BLOCK B" + strconv.Itoa(b) + " # generated\n")
		for r := 0; r < rows; r++ {
			sb.WriteString("   " + strconv.Itoa(r) + "   1.23456789E+02   # row\n")
		}
	}
	return strings.Split(sb.String(), "\n")
}

func BenchmarkParse(b *testing.B) {
	lines := benchInput(20, 50)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Parse(lines); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEmit(b *testing.B) {
	doc, err := Parse(benchInput(20, 50))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Emit(doc)
	}
}

func BenchmarkClassifyToken(b *testing.B) {
	toks := []string{"36", "1.23456789E+02", "SOFTSUSY", "#", "-5", "4.0.1"}
	for i := 0; i < b.N; i++ {
		for _, tok := range toks {
			_ = ClassifyToken(tok)
		}
	}
}
