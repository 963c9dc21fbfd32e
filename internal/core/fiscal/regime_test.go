package fiscal

import (
	"testing"

	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/shopspring/decimal"
)

func notaCom(itens ...domain.ItemNota) domain.NotaFiscal {
	return domain.NotaFiscal{UFOrigem: "SP", UFDestino: "RS", Itens: itens}
}

func itemRegime(cst, cfop string, pis, total string) domain.ItemNota {
	p, _ := decimal.NewFromString(pis)
	v, _ := decimal.NewFromString(total)
	return domain.ItemNota{
		CSTICMS:      cst,
		CFOP:         cfop,
		PISDeclarado: p,
		ValorTotal:   v,
	}
}

func TestAnalisarRegimeSimples(t *testing.T) {
	a := NewAnalisador(0)

	notas := []domain.NotaFiscal{
		notaCom(itemRegime("102", "5102", "0", "100"), itemRegime("102", "5102", "0", "100")),
		notaCom(itemRegime("102", "5102", "0", "100"), itemRegime("00", "5102", "0", "100")),
	}

	analise := a.AnalisarRegime(notas)
	if analise.Regime != domain.RegimeSimplesNacional {
		t.Fatalf("3 de 4 itens com CSOSN deveriam inferir Simples, obteve %s", analise.Regime)
	}
	if analise.FracaoSimples != 0.75 {
		t.Errorf("fração de CSOSN: esperava 0.75, obteve %f", analise.FracaoSimples)
	}
	if analise.RegimePisCofins != domain.PisCofinsCumulativo {
		t.Errorf("Simples usa o regime cumulativo, obteve %s", analise.RegimePisCofins)
	}
}

func TestAnalisarRegimeLucroRealPorPIS(t *testing.T) {
	a := NewAnalisador(0)

	// PIS efetivo de 1,65% aponta regime não cumulativo.
	notas := []domain.NotaFiscal{
		notaCom(itemRegime("00", "5102", "1.65", "100"), itemRegime("00", "5102", "16.50", "1000")),
	}

	analise := a.AnalisarRegime(notas)
	if analise.Regime != domain.RegimeLucroReal {
		t.Fatalf("esperava Lucro Real, obteve %s", analise.Regime)
	}
	if analise.RegimePisCofins != domain.PisCofinsNaoCumulativo {
		t.Errorf("esperava regime não cumulativo, obteve %s", analise.RegimePisCofins)
	}
}

func TestAnalisarRegimeLucroPresumidoPorPIS(t *testing.T) {
	a := NewAnalisador(0)

	notas := []domain.NotaFiscal{
		notaCom(itemRegime("00", "5102", "0.65", "100")),
	}

	analise := a.AnalisarRegime(notas)
	if analise.Regime != domain.RegimeLucroPresumido {
		t.Fatalf("PIS de 0,65%% deveria inferir Lucro Presumido, obteve %s", analise.Regime)
	}
}

func TestAnalisarRegimeFallbackSemAmostraDePIS(t *testing.T) {
	a := NewAnalisador(0)

	t.Run("presença de ST aponta apuração completa", func(t *testing.T) {
		notas := []domain.NotaFiscal{notaCom(itemRegime("10", "5102", "0", "100"))}
		analise := a.AnalisarRegime(notas)
		if analise.Regime != domain.RegimeLucroReal {
			t.Errorf("obteve %s", analise.Regime)
		}
		if !analise.PossuiST {
			t.Error("deveria sinalizar presença de ST")
		}
	})

	t.Run("sem sinal nenhum cai em Presumido", func(t *testing.T) {
		notas := []domain.NotaFiscal{notaCom(itemRegime("00", "5102", "0", "100"))}
		analise := a.AnalisarRegime(notas)
		if analise.Regime != domain.RegimeLucroPresumido {
			t.Errorf("obteve %s", analise.Regime)
		}
	})
}

// A análise agrega por contagem; inverter a ordem das notas não pode mudar
// nenhum campo do resultado.
func TestAnalisarRegimeIndependeDaOrdem(t *testing.T) {
	a := NewAnalisador(0)

	notas := []domain.NotaFiscal{
		notaCom(itemRegime("102", "5102", "0", "100")),
		notaCom(itemRegime("00", "6102", "1.65", "100")),
		notaCom(itemRegime("10", "5405", "0.65", "100")),
		notaCom(itemRegime("00", "5102", "16.50", "1000")),
	}
	invertidas := make([]domain.NotaFiscal, len(notas))
	for i := range notas {
		invertidas[i] = notas[len(notas)-1-i]
	}

	direta := a.AnalisarRegime(notas)
	inversa := a.AnalisarRegime(invertidas)
	if direta != inversa {
		t.Errorf("análise mudou com a ordem:\n direta: %+v\ninversa: %+v", direta, inversa)
	}
}

func TestExtrairAliquotasEstaduais(t *testing.T) {
	a := NewAnalisador(0)

	item18 := domain.ItemNota{AliquotaICMS: decimal.NewFromInt(18)}
	item12 := domain.ItemNota{AliquotaICMS: decimal.NewFromInt(12)}

	notas := []domain.NotaFiscal{
		{UFOrigem: "SP", UFDestino: "SP", Itens: []domain.ItemNota{item18, item18, item18}},
		{UFOrigem: "SP", UFDestino: "RS", Itens: []domain.ItemNota{item12}},
	}

	aliquotas := a.ExtrairAliquotasEstaduais(notas)
	if len(aliquotas) != 2 {
		t.Fatalf("esperava 2 pares de UF, obteve %d", len(aliquotas))
	}
	// Saída ordenada por UF de origem e destino.
	if aliquotas[0].UFDestino != "RS" || !aliquotas[0].Aliquota.Equal(decimal.NewFromInt(12)) {
		t.Errorf("primeiro par inesperado: %+v", aliquotas[0])
	}
	if aliquotas[1].Inconsistente {
		t.Error("alíquota unânime não pode ser marcada inconsistente")
	}
}

func TestExtrairAliquotasEstaduaisInconsistente(t *testing.T) {
	a := NewAnalisador(0)

	itens := []domain.ItemNota{
		{AliquotaICMS: decimal.NewFromInt(18)},
		{AliquotaICMS: decimal.NewFromInt(12)},
		{AliquotaICMS: decimal.NewFromInt(12)},
		{AliquotaICMS: decimal.NewFromInt(18)},
	}
	notas := []domain.NotaFiscal{{UFOrigem: "SP", UFDestino: "SP", Itens: itens}}

	aliquotas := a.ExtrairAliquotasEstaduais(notas)
	if len(aliquotas) != 1 {
		t.Fatalf("esperava 1 par, obteve %d", len(aliquotas))
	}
	if !aliquotas[0].Inconsistente {
		t.Error("moda com 50% das amostras deveria ser inconsistente")
	}
	// Empate de frequência resolve pela menor alíquota.
	if !aliquotas[0].Aliquota.Equal(decimal.NewFromInt(12)) {
		t.Errorf("empate deveria escolher 12, obteve %s", aliquotas[0].Aliquota)
	}
}

func TestGerarConfiguracao(t *testing.T) {
	a := NewAnalisador(0)

	mva := decimal.NewFromFloat(0.40)
	notas := []domain.NotaFiscal{
		{UFOrigem: "SP", UFDestino: "SP", Itens: []domain.ItemNota{
			{CSTICMS: "10", CFOP: "5405", NCM: "22021000", AliquotaICMS: decimal.NewFromInt(18), MVADeclarado: mva, ICMSSTDeclarado: decimal.NewFromInt(10)},
		}},
	}

	config := a.GerarConfiguracao("emp-1", notas)
	if config.Empresa != "emp-1" {
		t.Errorf("empresa: obteve %s", config.Empresa)
	}
	if config.NotasAmostradas != 1 {
		t.Errorf("notas amostradas: obteve %d", config.NotasAmostradas)
	}
	if len(config.ConfiguracoesST) != 1 || !config.ConfiguracoesST[0].MVA.Equal(mva) {
		t.Errorf("configuração de ST inesperada: %+v", config.ConfiguracoesST)
	}
	if config.Tolerancias.ImpostoAbsoluto.IsZero() {
		t.Error("configuração gerada carrega tolerâncias padrão")
	}
	if config.GeradaEm.IsZero() {
		t.Error("GeradaEm deveria ser preenchido")
	}
}
