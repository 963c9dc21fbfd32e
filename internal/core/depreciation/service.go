// internal/core/depreciation/service.go
package depreciation

import (
	"fmt"

	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// Service gera cronogramas de depreciação e calcula o resultado de baixa de
// ativos. Calculadoras puras: os mesmos parâmetros reproduzem sempre o mesmo
// cronograma.
type Service interface {
	CalcularLinear(custo, valorResidual decimal.Decimal, vidaUtil int) (*domain.CronogramaDepreciacao, error)
	CalcularSaldoDecrescente(custo, valorResidual decimal.Decimal, vidaUtil int, fator decimal.Decimal) (*domain.CronogramaDepreciacao, error)
	CalcularSomaDigitos(custo, valorResidual decimal.Decimal, vidaUtil int) (*domain.CronogramaDepreciacao, error)
	CalcularResultadoBaixa(valorContabil, valorVenda decimal.Decimal) domain.ResultadoBaixa
}

type service struct{}

func NewService() Service {
	return &service{}
}

func validarParametros(custo, valorResidual decimal.Decimal, vidaUtil int) error {
	if vidaUtil <= 0 {
		return fmt.Errorf("%w: vida útil deve ser positiva, recebido %d", domain.ErrVidaUtilInvalida, vidaUtil)
	}
	if valorResidual.GreaterThan(custo) {
		return fmt.Errorf("%w: valor residual %s maior que o custo %s",
			domain.ErrCustoInvalido, valorResidual.String(), custo.String())
	}
	return nil
}

// CalcularLinear deprecia (custo - residual) em parcelas constantes. O último
// período absorve o resíduo de arredondamento, então o cronograma fecha exato
// no valor depreciável.
func (s *service) CalcularLinear(custo, valorResidual decimal.Decimal, vidaUtil int) (*domain.CronogramaDepreciacao, error) {
	if err := validarParametros(custo, valorResidual, vidaUtil); err != nil {
		return nil, err
	}

	depreciavel := custo.Sub(valorResidual)
	parcela := depreciavel.Div(decimal.NewFromInt(int64(vidaUtil))).Round(2)

	cronograma := &domain.CronogramaDepreciacao{
		Metodo:        domain.MetodoLinear,
		Custo:         custo,
		ValorResidual: valorResidual,
	}

	saldo := custo
	for periodo := 1; periodo <= vidaUtil; periodo++ {
		valor := parcela
		if periodo == vidaUtil {
			valor = saldo.Sub(valorResidual)
		}
		cronograma.Periodos = append(cronograma.Periodos, domain.PeriodoDepreciacao{
			Periodo:      periodo,
			SaldoInicial: saldo,
			Depreciacao:  valor,
			SaldoFinal:   saldo.Sub(valor),
		})
		saldo = saldo.Sub(valor)
	}
	return cronograma, nil
}

// CalcularSaldoDecrescente aplica a taxa sobre o saldo contábil de abertura
// de cada período; fator <= 0 usa o dobro da taxa linear (2/vidaUtil). A
// depreciação é limitada para o saldo nunca cair abaixo do valor residual.
func (s *service) CalcularSaldoDecrescente(custo, valorResidual decimal.Decimal, vidaUtil int, fator decimal.Decimal) (*domain.CronogramaDepreciacao, error) {
	if err := validarParametros(custo, valorResidual, vidaUtil); err != nil {
		return nil, err
	}
	if !fator.IsPositive() {
		fator = decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(vidaUtil)))
	}

	cronograma := &domain.CronogramaDepreciacao{
		Metodo:        domain.MetodoSaldoDecrescente,
		Custo:         custo,
		ValorResidual: valorResidual,
	}

	saldo := custo
	for periodo := 1; periodo <= vidaUtil; periodo++ {
		valor := saldo.Mul(fator).Round(2)
		if teto := saldo.Sub(valorResidual); valor.GreaterThan(teto) {
			valor = teto
		}
		cronograma.Periodos = append(cronograma.Periodos, domain.PeriodoDepreciacao{
			Periodo:      periodo,
			SaldoInicial: saldo,
			Depreciacao:  valor,
			SaldoFinal:   saldo.Sub(valor),
		})
		saldo = saldo.Sub(valor)
	}
	return cronograma, nil
}

// CalcularSomaDigitos pondera cada período pela vida útil remanescente sobre
// a soma dos dígitos dos anos; o último período fecha exato no residual.
func (s *service) CalcularSomaDigitos(custo, valorResidual decimal.Decimal, vidaUtil int) (*domain.CronogramaDepreciacao, error) {
	if err := validarParametros(custo, valorResidual, vidaUtil); err != nil {
		return nil, err
	}

	depreciavel := custo.Sub(valorResidual)
	somaDigitos := decimal.NewFromInt(int64(vidaUtil * (vidaUtil + 1) / 2))

	cronograma := &domain.CronogramaDepreciacao{
		Metodo:        domain.MetodoSomaDigitos,
		Custo:         custo,
		ValorResidual: valorResidual,
	}

	saldo := custo
	for periodo := 1; periodo <= vidaUtil; periodo++ {
		peso := decimal.NewFromInt(int64(vidaUtil - periodo + 1)).Div(somaDigitos)
		valor := depreciavel.Mul(peso).Round(2)
		if periodo == vidaUtil {
			valor = saldo.Sub(valorResidual)
		}
		cronograma.Periodos = append(cronograma.Periodos, domain.PeriodoDepreciacao{
			Periodo:      periodo,
			SaldoInicial: saldo,
			Depreciacao:  valor,
			SaldoFinal:   saldo.Sub(valor),
		})
		saldo = saldo.Sub(valor)
	}
	return cronograma, nil
}

// CalcularResultadoBaixa compara o produto da venda com o valor contábil no
// momento da baixa. Diferença zero não é ganho nem perda.
func (s *service) CalcularResultadoBaixa(valorContabil, valorVenda decimal.Decimal) domain.ResultadoBaixa {
	diferenca := valorVenda.Sub(valorContabil).Round(2)
	switch {
	case diferenca.IsPositive():
		return domain.ResultadoBaixa{Tipo: domain.BaixaGanho, Valor: diferenca}
	case diferenca.IsNegative():
		return domain.ResultadoBaixa{Tipo: domain.BaixaPerda, Valor: diferenca.Abs()}
	default:
		return domain.ResultadoBaixa{Tipo: domain.BaixaNeutra, Valor: decimal.Zero}
	}
}
