// internal/core/reconciliation/matcher.go
package reconciliation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/schollz/closestmatch"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlphanumericRegex = regexp.MustCompile(`[^A-Z0-9 ]+`)
var whitespaceRegex = regexp.MustCompile(`\s+`)

// normalizarTexto remove acentos e pontuação e colapsa espaços; chave comum
// para comparar descrições de item e de material.
func normalizarTexto(str string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}))
	result, _, _ := transform.String(t, str)
	result = strings.ToUpper(result)
	result = nonAlphanumericRegex.ReplaceAllString(result, " ")
	result = whitespaceRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// sobreposicaoTokens mede a similaridade entre duas descrições normalizadas
// como |interseção| / |união| dos tokens. Simétrica e determinística, então o
// rematch de um item já casado devolve sempre o mesmo resultado.
func sobreposicaoTokens(a, b string) float64 {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	conjunto := make(map[string]bool, len(tokensA))
	for _, t := range tokensA {
		conjunto[t] = true
	}
	uniao := len(conjunto)
	intersecao := 0
	vistos := make(map[string]bool, len(tokensB))
	for _, t := range tokensB {
		if vistos[t] {
			continue
		}
		vistos[t] = true
		if conjunto[t] {
			intersecao++
		} else {
			uniao++
		}
	}
	return float64(intersecao) / float64(uniao)
}

// Matcher casa itens de nota com o cadastro de materiais: código exato
// primeiro (confiança 1,0), depois NCM + sobreposição de descrição. Para
// itens sem correspondência gera sugestões por proximidade de descrição,
// destinadas à revisão manual.
type Matcher struct {
	materiais         []domain.Material
	porCodigo         map[string]string // código (interno ou de fornecedor) → código interno
	descricoes        *closestmatch.ClosestMatch
	codigoPorChave    map[string]string // descrição normalizada → código interno
	chavesPorMaterial map[string]string
}

func NewMatcher(materiais []domain.Material) *Matcher {
	m := &Matcher{
		materiais:         materiais,
		porCodigo:         make(map[string]string),
		codigoPorChave:    make(map[string]string),
		chavesPorMaterial: make(map[string]string),
	}

	var chaves []string
	for _, mat := range materiais {
		m.porCodigo[strings.TrimSpace(mat.Codigo)] = mat.Codigo
		for _, cf := range mat.CodigosFornecedor {
			m.porCodigo[strings.TrimSpace(cf)] = mat.Codigo
		}
		chave := normalizarTexto(mat.Descricao)
		if chave == "" {
			continue
		}
		m.chavesPorMaterial[mat.Codigo] = chave
		if _, existe := m.codigoPorChave[chave]; !existe {
			m.codigoPorChave[chave] = mat.Codigo
			chaves = append(chaves, chave)
		}
	}
	if len(chaves) > 0 {
		m.descricoes = closestmatch.New(chaves, []int{3, 4})
	}
	return m
}

// Corresponder tenta casar um item; devolve nil quando não há candidato com
// confiança suficiente, junto com sugestões de descrição próxima. Empate de
// melhor candidato também exige resolução manual.
func (m *Matcher) Corresponder(item domain.ItemNota, confiancaMinima float64) (*domain.CorrespondenciaMaterial, []string) {
	if codigo, ok := m.porCodigo[strings.TrimSpace(item.Codigo)]; ok {
		return &domain.CorrespondenciaMaterial{
			Sequencia:      item.Sequencia,
			CodigoMaterial: codigo,
			Criterio:       "codigo_exato",
			Confianca:      1.0,
		}, nil
	}

	chaveItem := normalizarTexto(item.Descricao)
	var melhorCodigo string
	var melhorConfianca float64
	empate := false
	for _, mat := range m.materiais {
		if mat.NCM == "" || mat.NCM != item.NCM {
			continue
		}
		confianca := sobreposicaoTokens(chaveItem, m.chavesPorMaterial[mat.Codigo])
		switch {
		case confianca > melhorConfianca:
			melhorCodigo, melhorConfianca = mat.Codigo, confianca
			empate = false
		case confianca == melhorConfianca && confianca > 0 && mat.Codigo != melhorCodigo:
			empate = true
		}
	}

	if melhorConfianca >= confiancaMinima && !empate {
		return &domain.CorrespondenciaMaterial{
			Sequencia:      item.Sequencia,
			CodigoMaterial: melhorCodigo,
			Criterio:       "ncm_descricao",
			Confianca:      melhorConfianca,
		}, nil
	}

	return nil, m.sugerir(chaveItem)
}

func (m *Matcher) sugerir(chaveItem string) []string {
	if m.descricoes == nil || chaveItem == "" {
		return nil
	}
	var sugestoes []string
	for _, chave := range m.descricoes.ClosestN(chaveItem, 3) {
		if chave == "" {
			continue
		}
		if codigo, ok := m.codigoPorChave[chave]; ok {
			sugestoes = append(sugestoes, codigo)
		}
	}
	return sugestoes
}
