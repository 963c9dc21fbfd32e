package depreciation

import (
	"errors"
	"testing"

	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalcularLinear(t *testing.T) {
	svc := NewService()

	cronograma, err := svc.CalcularLinear(d("10000"), d("1000"), 5)
	if err != nil {
		t.Fatalf("CalcularLinear devolveu erro: %v", err)
	}

	if len(cronograma.Periodos) != 5 {
		t.Fatalf("esperava 5 períodos, obteve %d", len(cronograma.Periodos))
	}
	for _, p := range cronograma.Periodos {
		if !p.Depreciacao.Equal(d("1800")) {
			t.Errorf("período %d: esperava 1800, obteve %s", p.Periodo, p.Depreciacao)
		}
	}
	ultimo := cronograma.Periodos[4]
	if !ultimo.SaldoFinal.Equal(d("1000")) {
		t.Errorf("saldo final deveria fechar no residual: obteve %s", ultimo.SaldoFinal)
	}
}

// Valor depreciável que não divide exato: o último período absorve o resíduo
// e o cronograma fecha no residual mesmo assim.
func TestCalcularLinearResiduoDeArredondamento(t *testing.T) {
	svc := NewService()

	cronograma, err := svc.CalcularLinear(d("1000"), d("0"), 3)
	if err != nil {
		t.Fatalf("CalcularLinear devolveu erro: %v", err)
	}

	if !cronograma.Periodos[0].Depreciacao.Equal(d("333.33")) {
		t.Errorf("parcela: obteve %s", cronograma.Periodos[0].Depreciacao)
	}
	if !cronograma.Periodos[2].Depreciacao.Equal(d("333.34")) {
		t.Errorf("último período absorve o resíduo: obteve %s", cronograma.Periodos[2].Depreciacao)
	}
	if !cronograma.Periodos[2].SaldoFinal.IsZero() {
		t.Errorf("saldo final: obteve %s", cronograma.Periodos[2].SaldoFinal)
	}

	var soma decimal.Decimal
	for _, p := range cronograma.Periodos {
		soma = soma.Add(p.Depreciacao)
	}
	if !soma.Equal(d("1000")) {
		t.Errorf("soma das depreciações: obteve %s", soma)
	}
}

func TestCalcularSaldoDecrescente(t *testing.T) {
	svc := NewService()

	// Fator <= 0 usa o dobro da taxa linear: 2/5 = 40%.
	cronograma, err := svc.CalcularSaldoDecrescente(d("10000"), d("1000"), 5, decimal.Zero)
	if err != nil {
		t.Fatalf("CalcularSaldoDecrescente devolveu erro: %v", err)
	}

	esperados := []string{"4000", "2400", "1440", "864", "296"}
	for i, e := range esperados {
		if !cronograma.Periodos[i].Depreciacao.Equal(d(e)) {
			t.Errorf("período %d: esperava %s, obteve %s", i+1, e, cronograma.Periodos[i].Depreciacao)
		}
	}
	// O último período é limitado para o saldo não furar o residual.
	if !cronograma.Periodos[4].SaldoFinal.Equal(d("1000")) {
		t.Errorf("saldo final: obteve %s", cronograma.Periodos[4].SaldoFinal)
	}
}

func TestCalcularSomaDigitos(t *testing.T) {
	svc := NewService()

	cronograma, err := svc.CalcularSomaDigitos(d("10000"), d("1000"), 5)
	if err != nil {
		t.Fatalf("CalcularSomaDigitos devolveu erro: %v", err)
	}

	// Soma dos dígitos 15; depreciável 9000: 5/15, 4/15, 3/15, 2/15, 1/15.
	esperados := []string{"3000", "2400", "1800", "1200", "600"}
	for i, e := range esperados {
		if !cronograma.Periodos[i].Depreciacao.Equal(d(e)) {
			t.Errorf("período %d: esperava %s, obteve %s", i+1, e, cronograma.Periodos[i].Depreciacao)
		}
	}
	if !cronograma.Periodos[4].SaldoFinal.Equal(d("1000")) {
		t.Errorf("saldo final: obteve %s", cronograma.Periodos[4].SaldoFinal)
	}
}

func TestValidacaoDeParametros(t *testing.T) {
	svc := NewService()

	t.Run("vida útil zero", func(t *testing.T) {
		_, err := svc.CalcularLinear(d("1000"), d("0"), 0)
		if !errors.Is(err, domain.ErrVidaUtilInvalida) {
			t.Fatalf("esperava ErrVidaUtilInvalida, obteve %v", err)
		}
	})

	t.Run("vida útil negativa", func(t *testing.T) {
		_, err := svc.CalcularSomaDigitos(d("1000"), d("0"), -3)
		if !errors.Is(err, domain.ErrVidaUtilInvalida) {
			t.Fatalf("esperava ErrVidaUtilInvalida, obteve %v", err)
		}
	})

	t.Run("residual maior que o custo", func(t *testing.T) {
		_, err := svc.CalcularSaldoDecrescente(d("1000"), d("2000"), 5, decimal.Zero)
		if !errors.Is(err, domain.ErrCustoInvalido) {
			t.Fatalf("esperava ErrCustoInvalido, obteve %v", err)
		}
	})
}

func TestCalcularResultadoBaixa(t *testing.T) {
	svc := NewService()

	t.Run("ganho", func(t *testing.T) {
		r := svc.CalcularResultadoBaixa(d("300"), d("500"))
		if r.Tipo != domain.BaixaGanho || !r.Valor.Equal(d("200")) {
			t.Errorf("obteve %+v", r)
		}
	})

	t.Run("perda devolve valor absoluto", func(t *testing.T) {
		r := svc.CalcularResultadoBaixa(d("300"), d("100"))
		if r.Tipo != domain.BaixaPerda || !r.Valor.Equal(d("200")) {
			t.Errorf("obteve %+v", r)
		}
	})

	t.Run("neutra", func(t *testing.T) {
		r := svc.CalcularResultadoBaixa(d("300"), d("300"))
		if r.Tipo != domain.BaixaNeutra || !r.Valor.IsZero() {
			t.Errorf("obteve %+v", r)
		}
	})
}
