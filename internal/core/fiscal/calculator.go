// internal/core/fiscal/calculator.go
package fiscal

import (
	"fmt"

	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/shopspring/decimal"
)

var cem = decimal.NewFromInt(100)

// Alíquotas federais de PIS/COFINS por regime, em percentual.
var (
	pisCumulativo       = decimal.NewFromFloat(0.65)
	cofinsCumulativa    = decimal.NewFromFloat(3.0)
	pisNaoCumulativo    = decimal.NewFromFloat(1.65)
	cofinsNaoCumulativa = decimal.NewFromFloat(7.6)
)

// Calculadora recalcula os impostos de itens de NF-e segundo a configuração
// fiscal da empresa. Alíquota que não pode ser resolvida vira aviso no
// detalhamento, nunca erro: quem decide bloquear é o chamador.
type Calculadora interface {
	CalcularImpostosItem(item domain.ItemNota, config domain.ConfiguracaoFiscal) domain.DetalhamentoImpostos
	CalcularTotaisNota(itens []domain.ItemNota, config domain.ConfiguracaoFiscal) domain.TotaisImpostos
}

type calculadora struct{}

func NewCalculadora() Calculadora {
	return &calculadora{}
}

// CalcularImpostosItem aplica as regras por imposto sobre a base
// quantidade × valor unitário. O arredondamento (2 casas, half-up) acontece
// uma única vez, na saída; as bases intermediárias ficam com precisão cheia
// para não acumular erro.
func (c *calculadora) CalcularImpostosItem(item domain.ItemNota, config domain.ConfiguracaoFiscal) domain.DetalhamentoImpostos {
	det := domain.DetalhamentoImpostos{Sequencia: item.Sequencia}

	base := item.Quantidade.Mul(item.ValorUnitario)
	det.BaseCalculo = base.Round(2)

	// Itens do Simples Nacional não destacam imposto próprio na nota.
	if CSTSimples(item.CSTICMS) {
		det.TotalImpostos = decimal.Zero.Round(2)
		return det
	}

	icms := decimal.Zero
	if !CSTIsentoICMS(item.CSTICMS) {
		aliquota, ok := config.Aliquota(item.UFOrigem, item.UFDestino)
		if !ok {
			aliquota, ok = AliquotaInterestadualPadrao(item.UFOrigem, item.UFDestino)
		}
		if !ok {
			det.Avisos = append(det.Avisos, fmt.Sprintf(
				"alíquota de ICMS não resolvida para o par %s→%s", item.UFOrigem, item.UFDestino))
		} else {
			det.AliquotaICMS = aliquota
			icms = base.Mul(aliquota).Div(cem)
		}
	}

	icmsSt := decimal.Zero
	baseSt := decimal.Zero
	if CSTComST(item.CSTICMS) {
		mva, ok := config.MVA(item.NCM, item.CFOP)
		if !ok && item.MVADeclarado.IsPositive() {
			mva, ok = item.MVADeclarado, true
		}
		aliquotaDestino, okDestino := config.Aliquota(item.UFDestino, item.UFDestino)
		if !okDestino {
			aliquotaDestino, okDestino = AliquotaInterna(item.UFDestino)
		}
		switch {
		case !ok:
			det.Avisos = append(det.Avisos, fmt.Sprintf(
				"MVA não configurada para NCM %s / CFOP %s", item.NCM, item.CFOP))
		case !okDestino:
			det.Avisos = append(det.Avisos, fmt.Sprintf(
				"alíquota interna da UF de destino %s não resolvida", item.UFDestino))
		default:
			// Base da ST = base própria acrescida da margem de valor agregado.
			baseSt = base.Mul(decimal.NewFromInt(1).Add(mva))
			icmsSt = baseSt.Mul(aliquotaDestino).Div(cem).Sub(icms)
			if icmsSt.IsNegative() {
				icmsSt = decimal.Zero
			}
		}
	}

	ipi := decimal.Zero
	if CFOPIndicaIPI(item.CFOP) {
		aliquotaIPI, ok := AliquotaIPIPorNCM(item.NCM)
		if ok {
			det.AliquotaIPI = aliquotaIPI
			ipi = base.Mul(aliquotaIPI).Div(cem)
		} else if item.IPIDeclarado.IsPositive() {
			det.Avisos = append(det.Avisos, fmt.Sprintf(
				"alíquota de IPI não resolvida para NCM %s", item.NCM))
		}
	}

	pis := decimal.Zero
	cofins := decimal.Zero
	if !CSTPisCofinsExonerado(item.CSTPIS) {
		aliquotaPIS, aliquotaCOFINS := pisCumulativo, cofinsCumulativa
		if config.RegimePisCofins == domain.PisCofinsNaoCumulativo {
			aliquotaPIS, aliquotaCOFINS = pisNaoCumulativo, cofinsNaoCumulativa
		}
		det.AliquotaPIS = aliquotaPIS
		det.AliquotaCOFINS = aliquotaCOFINS
		pis = base.Mul(aliquotaPIS).Div(cem)
		cofins = base.Mul(aliquotaCOFINS).Div(cem)
	}

	det.ICMS = icms.Round(2)
	det.ICMSST = icmsSt.Round(2)
	det.BaseST = baseSt.Round(2)
	det.IPI = ipi.Round(2)
	det.PIS = pis.Round(2)
	det.COFINS = cofins.Round(2)
	det.TotalImpostos = det.ICMS.Add(det.ICMSST).Add(det.IPI).Add(det.PIS).Add(det.COFINS)
	return det
}

// CalcularTotaisNota soma os detalhamentos já arredondados de cada item.
// Os totais são exatamente a soma dos itens; não existe arredondamento
// independente no nível da nota.
func (c *calculadora) CalcularTotaisNota(itens []domain.ItemNota, config domain.ConfiguracaoFiscal) domain.TotaisImpostos {
	var totais domain.TotaisImpostos
	for _, item := range itens {
		det := c.CalcularImpostosItem(item, config)
		totais.BaseCalculo = totais.BaseCalculo.Add(det.BaseCalculo)
		totais.ICMS = totais.ICMS.Add(det.ICMS)
		totais.ICMSST = totais.ICMSST.Add(det.ICMSST)
		totais.IPI = totais.IPI.Add(det.IPI)
		totais.PIS = totais.PIS.Add(det.PIS)
		totais.COFINS = totais.COFINS.Add(det.COFINS)
		totais.TotalImpostos = totais.TotalImpostos.Add(det.TotalImpostos)
		for _, aviso := range det.Avisos {
			totais.Avisos = append(totais.Avisos, fmt.Sprintf("item %d: %s", item.Sequencia, aviso))
		}
	}
	return totais
}
