package symbol

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// SymbolLength はシンボルの文字数であり、元素名の最小文字数でもあります。
const SymbolLength = 2

var (
	// ErrNullInput は元素名またはシンボルが指定されていないことを表します。
	ErrNullInput = errors.New("input is required")
	// ErrInvalidLength は元素名またはシンボルの長さが不正であることを表します。
	ErrInvalidLength = errors.New("invalid length")
)

// CandidateSet は元素名から導出できる正規化済みシンボルの集合です。
type CandidateSet map[string]struct{}

// Contains は正規化後の sym が集合に含まれるかを返します。
func (c CandidateSet) Contains(sym string) bool {
	_, ok := c[Normalize(sym)]
	return ok
}

func (c CandidateSet) Len() int {
	return len(c)
}

// Sorted は集合をバイト順に並べたスライスを返します。
func (c CandidateSet) Sorted() []string {
	out := make([]string, 0, len(c))
	for s := range c {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Normalize はシンボルを「先頭大文字・2文字目小文字」の正規形に変換します。
func Normalize(sym string) string {
	lower := strings.ToLower(sym)
	r, size := utf8.DecodeRuneInString(lower)
	if r == utf8.RuneError {
		return lower
	}
	return string(unicode.ToUpper(r)) + lower[size:]
}

// Candidates は元素名の文字位置 i < j の全ペアから候補シンボルを生成します。
// 同じ文字を2つ含むシンボル（例: "Nn"）は、その文字が2箇所に現れる場合にのみ生成されます。
func Candidates(element string) (CandidateSet, error) {
	if err := checkElement(element); err != nil {
		return nil, err
	}

	// 位置 j より前に現れた文字の種類ごとにペアを作れば、i < j の全ペアを重複なく覆える。
	// ペア数は文字の種類数の2乗で抑えられ、元素名の長さには依存しない。
	type pair [2]rune
	var before []rune
	seen := make(map[rune]struct{})
	pairs := make(map[pair]struct{})
	for _, r := range strings.ToLower(element) {
		for _, first := range before {
			pairs[pair{first, r}] = struct{}{}
		}
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			before = append(before, r)
		}
	}

	set := make(CandidateSet, len(pairs))
	for p := range pairs {
		set[string([]rune{unicode.ToUpper(p[0]), p[1]})] = struct{}{}
	}
	return set, nil
}

// IsValidSymbolOf は sym が element の有効なシンボルかを判定します。大文字小文字は区別しません。
func IsValidSymbolOf(element, sym string) (bool, error) {
	if err := checkSymbol(sym); err != nil {
		return false, err
	}
	set, err := Candidates(element)
	if err != nil {
		return false, err
	}
	return set.Contains(sym), nil
}

// FirstSymbol はアルファベット順で最初の有効なシンボルを返します。
func FirstSymbol(element string) (string, error) {
	set, err := Candidates(element)
	if err != nil {
		return "", err
	}

	first := ""
	for s := range set {
		if first == "" || s < first {
			first = s
		}
	}
	return first, nil
}

// NumberOfValidSymbols は重複を除いた有効なシンボルの数を返します。
func NumberOfValidSymbols(element string) (int, error) {
	set, err := Candidates(element)
	if err != nil {
		return 0, err
	}
	return set.Len(), nil
}

func checkElement(element string) error {
	if utf8.RuneCountInString(element) < SymbolLength {
		return errors.Mark(
			errors.Newf("Element %s must be at least %d characters long", element, SymbolLength),
			ErrInvalidLength,
		)
	}
	return nil
}

func checkSymbol(sym string) error {
	if utf8.RuneCountInString(sym) != SymbolLength {
		return errors.Mark(
			errors.Newf("Symbol %s is not %d characters long", sym, SymbolLength),
			ErrInvalidLength,
		)
	}
	return nil
}
