package reconciliation

import (
	"testing"

	"github.com/frmerp/fiscal-engine/internal/domain"
)

func materiaisTeste() []domain.Material {
	return []domain.Material{
		{Codigo: "MAT-1", Descricao: "Parafuso sextavado aço 10mm", NCM: "73181500", CodigosFornecedor: []string{"F123"}},
		{Codigo: "MAT-2", Descricao: "Porca sextavada aço 10mm", NCM: "73181600"},
		{Codigo: "MAT-3", Descricao: "Arruela lisa zincada 10mm", NCM: "73182200"},
	}
}

func TestNormalizarTexto(t *testing.T) {
	casos := map[string]string{
		"Parafuso Sextavado AÇO 10mm": "PARAFUSO SEXTAVADO ACO 10MM",
		"  café   com\taçúcar ":       "CAFE COM ACUCAR",
		"a-b/c.d":                     "A B C D",
		"":                            "",
	}
	for entrada, esperado := range casos {
		if obtido := normalizarTexto(entrada); obtido != esperado {
			t.Errorf("normalizarTexto(%q): esperava %q, obteve %q", entrada, esperado, obtido)
		}
	}
}

func TestCorresponderPorCodigoExato(t *testing.T) {
	m := NewMatcher(materiaisTeste())

	t.Run("código interno", func(t *testing.T) {
		c, _ := m.Corresponder(domain.ItemNota{Sequencia: 1, Codigo: "MAT-2"}, 0.6)
		if c == nil || c.CodigoMaterial != "MAT-2" || c.Confianca != 1.0 {
			t.Fatalf("correspondência inesperada: %+v", c)
		}
		if c.Criterio != "codigo_exato" {
			t.Errorf("critério: obteve %s", c.Criterio)
		}
	})

	t.Run("código de fornecedor", func(t *testing.T) {
		c, _ := m.Corresponder(domain.ItemNota{Sequencia: 1, Codigo: "F123"}, 0.6)
		if c == nil || c.CodigoMaterial != "MAT-1" {
			t.Fatalf("código de fornecedor deveria resolver para MAT-1: %+v", c)
		}
	})
}

func TestCorresponderPorNCMEDescricao(t *testing.T) {
	m := NewMatcher(materiaisTeste())

	item := domain.ItemNota{
		Sequencia: 2,
		Codigo:    "XYZ-999",
		Descricao: "PARAFUSO SEXTAVADO ACO 10MM",
		NCM:       "73181500",
	}
	c, _ := m.Corresponder(item, 0.6)
	if c == nil {
		t.Fatal("esperava correspondência por NCM e descrição")
	}
	if c.CodigoMaterial != "MAT-1" || c.Criterio != "ncm_descricao" {
		t.Errorf("correspondência inesperada: %+v", c)
	}
	if c.Confianca < 0.6 {
		t.Errorf("confiança abaixo do limiar: %f", c.Confianca)
	}
}

func TestCorresponderSemCandidato(t *testing.T) {
	m := NewMatcher(materiaisTeste())

	item := domain.ItemNota{
		Sequencia: 3,
		Codigo:    "XYZ-999",
		Descricao: "PARAFUSO SEXTAVADO ACO 10MM",
		NCM:       "99999999", // NCM sem material correspondente
	}
	c, sugestoes := m.Corresponder(item, 0.6)
	if c != nil {
		t.Fatalf("não deveria haver correspondência: %+v", c)
	}
	if len(sugestoes) == 0 {
		t.Error("item sem match deveria vir com sugestões de descrição próxima")
	}
}

// Empate entre dois candidatos com a mesma confiança exige resolução manual.
func TestCorresponderEmpateExigeRevisao(t *testing.T) {
	materiais := []domain.Material{
		{Codigo: "A", Descricao: "BOMBA HIDRAULICA", NCM: "84137080"},
		{Codigo: "B", Descricao: "BOMBA PNEUMATICA", NCM: "84137080"},
	}
	m := NewMatcher(materiais)

	item := domain.ItemNota{Sequencia: 1, Codigo: "X", Descricao: "BOMBA", NCM: "84137080"}
	if c, _ := m.Corresponder(item, 0.3); c != nil {
		t.Fatalf("empate deveria ir para revisão manual, obteve %+v", c)
	}
}

// O mesmo item contra o mesmo cadastro devolve sempre o mesmo resultado.
func TestCorresponderDeterministico(t *testing.T) {
	m := NewMatcher(materiaisTeste())
	item := domain.ItemNota{
		Sequencia: 1,
		Codigo:    "XYZ",
		Descricao: "PORCA SEXTAVADA ACO 10MM",
		NCM:       "73181600",
	}

	primeiro, _ := m.Corresponder(item, 0.6)
	if primeiro == nil {
		t.Fatal("esperava correspondência")
	}
	for i := 0; i < 10; i++ {
		c, _ := m.Corresponder(item, 0.6)
		if c == nil || *c != *primeiro {
			t.Fatalf("iteração %d divergiu: %+v vs %+v", i, c, primeiro)
		}
	}
}
