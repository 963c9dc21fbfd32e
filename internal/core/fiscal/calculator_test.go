package fiscal

import (
	"testing"

	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("valor decimal inválido no teste: %q", s)
	}
	return d
}

func itemBase(t *testing.T) domain.ItemNota {
	return domain.ItemNota{
		Sequencia:     1,
		Codigo:        "P1",
		Descricao:     "PRODUTO TESTE",
		NCM:           "10059010", // capítulo sem dica de IPI
		CFOP:          "5102",
		UFOrigem:      "SP",
		UFDestino:     "SP",
		CSTICMS:       "00",
		CSTPIS:        "01",
		CSTCOFINS:     "01",
		Quantidade:    dec(t, "10"),
		ValorUnitario: dec(t, "100"),
		ValorTotal:    dec(t, "1000"),
	}
}

func TestCalcularImpostosItemTributadoIntegral(t *testing.T) {
	calc := NewCalculadora()
	config := domain.ConfiguracaoFiscal{
		Empresa:         "emp",
		RegimePisCofins: domain.PisCofinsCumulativo,
		Tolerancias:     domain.ToleranciasPadrao(),
	}

	det := calc.CalcularImpostosItem(itemBase(t), config)

	if !det.BaseCalculo.Equal(dec(t, "1000.00")) {
		t.Errorf("base de cálculo: esperava 1000.00, obteve %s", det.BaseCalculo)
	}
	// SP interno: 18% de referência.
	if !det.ICMS.Equal(dec(t, "180.00")) {
		t.Errorf("ICMS: esperava 180.00, obteve %s", det.ICMS)
	}
	if !det.PIS.Equal(dec(t, "6.50")) {
		t.Errorf("PIS cumulativo: esperava 6.50, obteve %s", det.PIS)
	}
	if !det.COFINS.Equal(dec(t, "30.00")) {
		t.Errorf("COFINS cumulativa: esperava 30.00, obteve %s", det.COFINS)
	}
	if !det.IPI.IsZero() {
		t.Errorf("IPI deveria ser zero para CFOP 5102, obteve %s", det.IPI)
	}
	if !det.TotalImpostos.Equal(dec(t, "216.50")) {
		t.Errorf("total de impostos: esperava 216.50, obteve %s", det.TotalImpostos)
	}
	if len(det.Avisos) != 0 {
		t.Errorf("não esperava avisos: %v", det.Avisos)
	}
}

func TestCalcularImpostosItemNaoCumulativo(t *testing.T) {
	calc := NewCalculadora()
	config := domain.ConfiguracaoFiscal{
		RegimePisCofins: domain.PisCofinsNaoCumulativo,
	}

	det := calc.CalcularImpostosItem(itemBase(t), config)

	if !det.PIS.Equal(dec(t, "16.50")) {
		t.Errorf("PIS não cumulativo: esperava 16.50, obteve %s", det.PIS)
	}
	if !det.COFINS.Equal(dec(t, "76.00")) {
		t.Errorf("COFINS não cumulativa: esperava 76.00, obteve %s", det.COFINS)
	}
}

func TestCalcularImpostosItemSimples(t *testing.T) {
	calc := NewCalculadora()
	item := itemBase(t)
	item.CSTICMS = "102" // CSOSN

	det := calc.CalcularImpostosItem(item, domain.ConfiguracaoFiscal{})

	if !det.ICMS.IsZero() || !det.PIS.IsZero() || !det.COFINS.IsZero() || !det.IPI.IsZero() {
		t.Errorf("item do Simples não destaca imposto próprio: %+v", det)
	}
	if !det.BaseCalculo.Equal(dec(t, "1000.00")) {
		t.Errorf("a base de cálculo continua informativa: obteve %s", det.BaseCalculo)
	}
}

func TestCalcularImpostosItemComST(t *testing.T) {
	calc := NewCalculadora()
	item := itemBase(t)
	item.CSTICMS = "10"
	config := domain.ConfiguracaoFiscal{
		RegimePisCofins: domain.PisCofinsCumulativo,
		ConfiguracoesST: []domain.ConfiguracaoST{
			{NCM: item.NCM, CFOP: item.CFOP, MVA: dec(t, "0.40")},
		},
	}

	det := calc.CalcularImpostosItem(item, config)

	// Base ST = 1000 * 1,40 = 1400; ICMS-ST = 1400*18% - 180 = 72.
	if !det.BaseST.Equal(dec(t, "1400.00")) {
		t.Errorf("base da ST: esperava 1400.00, obteve %s", det.BaseST)
	}
	if !det.ICMSST.Equal(dec(t, "72.00")) {
		t.Errorf("ICMS-ST: esperava 72.00, obteve %s", det.ICMSST)
	}
}

func TestCalcularImpostosItemSTNegativaZerada(t *testing.T) {
	calc := NewCalculadora()
	item := itemBase(t)
	item.CSTICMS = "10"
	config := domain.ConfiguracaoFiscal{
		// MVA zero: base ST igual à base própria, diferença seria zero.
		ConfiguracoesST: []domain.ConfiguracaoST{
			{NCM: item.NCM, CFOP: item.CFOP, MVA: decimal.Zero},
		},
		// Alíquota interna configurada menor que a própria geraria ST negativa.
		AliquotasEstaduais: []domain.AliquotaEstadual{
			{UFOrigem: "SP", UFDestino: "SP", Aliquota: dec(t, "18")},
		},
	}

	det := calc.CalcularImpostosItem(item, config)
	if det.ICMSST.IsNegative() {
		t.Errorf("ICMS-ST nunca pode ser negativo, obteve %s", det.ICMSST)
	}
}

func TestCalcularImpostosItemAliquotaNaoResolvida(t *testing.T) {
	calc := NewCalculadora()
	item := itemBase(t)
	item.UFOrigem = "XX"
	item.UFDestino = "SP"

	det := calc.CalcularImpostosItem(item, domain.ConfiguracaoFiscal{})

	if !det.ICMS.IsZero() {
		t.Errorf("sem alíquota resolvida o ICMS fica zero, obteve %s", det.ICMS)
	}
	if len(det.Avisos) == 0 {
		t.Error("esperava aviso de alíquota não resolvida")
	}
}

func TestCalcularImpostosItemInterestadual(t *testing.T) {
	calc := NewCalculadora()

	t.Run("Sul/Sudeste para Nordeste usa 7%", func(t *testing.T) {
		item := itemBase(t)
		item.UFOrigem, item.UFDestino = "SP", "BA"
		det := calc.CalcularImpostosItem(item, domain.ConfiguracaoFiscal{})
		if !det.ICMS.Equal(dec(t, "70.00")) {
			t.Errorf("esperava 70.00, obteve %s", det.ICMS)
		}
	})

	t.Run("demais fluxos usam 12%", func(t *testing.T) {
		item := itemBase(t)
		item.UFOrigem, item.UFDestino = "BA", "SP"
		det := calc.CalcularImpostosItem(item, domain.ConfiguracaoFiscal{})
		if !det.ICMS.Equal(dec(t, "120.00")) {
			t.Errorf("esperava 120.00, obteve %s", det.ICMS)
		}
	})

	t.Run("configuração da empresa prevalece", func(t *testing.T) {
		item := itemBase(t)
		item.UFOrigem, item.UFDestino = "SP", "BA"
		config := domain.ConfiguracaoFiscal{
			AliquotasEstaduais: []domain.AliquotaEstadual{
				{UFOrigem: "SP", UFDestino: "BA", Aliquota: dec(t, "4")},
			},
		}
		det := calc.CalcularImpostosItem(item, config)
		if !det.ICMS.Equal(dec(t, "40.00")) {
			t.Errorf("esperava 40.00, obteve %s", det.ICMS)
		}
	})
}

func TestCalcularImpostosItemIPI(t *testing.T) {
	calc := NewCalculadora()
	item := itemBase(t)
	item.CFOP = "5101" // venda de produção própria
	item.NCM = "85171200"

	det := calc.CalcularImpostosItem(item, domain.ConfiguracaoFiscal{})

	// Capítulo 85: 10% de referência sobre 1000.
	if !det.IPI.Equal(dec(t, "100.00")) {
		t.Errorf("IPI: esperava 100.00, obteve %s", det.IPI)
	}
}

// Os totais da nota devem ser exatamente a soma dos itens arredondados.
func TestCalcularTotaisNotaSomaDosItens(t *testing.T) {
	calc := NewCalculadora()
	config := domain.ConfiguracaoFiscal{RegimePisCofins: domain.PisCofinsCumulativo}

	itens := []domain.ItemNota{itemBase(t), itemBase(t), itemBase(t)}
	itens[1].Sequencia = 2
	itens[1].ValorUnitario = dec(t, "33.335")
	itens[2].Sequencia = 3
	itens[2].Quantidade = dec(t, "7")
	itens[2].ValorUnitario = dec(t, "0.013")

	totais := calc.CalcularTotaisNota(itens, config)

	var somaICMS, somaTotal decimal.Decimal
	for _, item := range itens {
		det := calc.CalcularImpostosItem(item, config)
		somaICMS = somaICMS.Add(det.ICMS)
		somaTotal = somaTotal.Add(det.TotalImpostos)
	}

	if !totais.ICMS.Equal(somaICMS) {
		t.Errorf("ICMS total %s difere da soma dos itens %s", totais.ICMS, somaICMS)
	}
	if !totais.TotalImpostos.Equal(somaTotal) {
		t.Errorf("total %s difere da soma dos itens %s", totais.TotalImpostos, somaTotal)
	}
}
