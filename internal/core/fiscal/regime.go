// internal/core/fiscal/regime.go
package fiscal

import (
	"sort"
	"time"

	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// LimiarSimplesPadrao é a fração mínima de itens com CSOSN para inferir
// Simples Nacional.
const LimiarSimplesPadrao = 0.70

// Analisador infere o regime tributário e as configurações recorrentes de
// alíquota e ST a partir das notas históricas de uma empresa. Toda a
// agregação é por contagem (soma por bucket, depois máximo), então o
// resultado independe da ordem das notas.
type Analisador interface {
	AnalisarRegime(notas []domain.NotaFiscal) domain.AnaliseRegime
	ExtrairAliquotasEstaduais(notas []domain.NotaFiscal) []domain.AliquotaEstadual
	ExtrairConfiguracoesST(notas []domain.NotaFiscal) []domain.ConfiguracaoST
	GerarConfiguracao(empresa string, notas []domain.NotaFiscal) domain.ConfiguracaoFiscal
}

type analisador struct {
	limiarSimples float64
}

// NewAnalisador cria o analisador; limiar <= 0 usa o padrão de 70%.
func NewAnalisador(limiarSimples float64) Analisador {
	if limiarSimples <= 0 {
		limiarSimples = LimiarSimplesPadrao
	}
	return &analisador{limiarSimples: limiarSimples}
}

func (a *analisador) AnalisarRegime(notas []domain.NotaFiscal) domain.AnaliseRegime {
	analise := domain.AnaliseRegime{NotasAmostradas: len(notas)}

	var totalItens, itensSimples int
	var pisCumulativo, pisNaoCumulativo int
	cfops := make(map[string]int)
	csts := make(map[string]int)

	for _, nota := range notas {
		for _, item := range nota.Itens {
			totalItens++
			cfops[item.CFOP]++
			csts[item.CSTICMS]++

			if CSTSimples(item.CSTICMS) {
				itensSimples++
			}
			if item.IPIDeclarado.IsPositive() {
				analise.PossuiIPI = true
			}
			if item.ICMSSTDeclarado.IsPositive() || CSTComST(item.CSTICMS) {
				analise.PossuiST = true
			}

			// A alíquota efetiva de PIS separa o regime cumulativo (0,65%)
			// do não cumulativo (1,65%).
			if item.PISDeclarado.IsPositive() && item.ValorTotal.IsPositive() {
				taxa := item.PISDeclarado.Div(item.ValorTotal).Mul(decimal.NewFromInt(100))
				switch {
				case taxa.Sub(decimal.NewFromFloat(1.65)).Abs().LessThan(decimal.NewFromFloat(0.3)):
					pisNaoCumulativo++
				case taxa.Sub(decimal.NewFromFloat(0.65)).Abs().LessThan(decimal.NewFromFloat(0.3)):
					pisCumulativo++
				}
			}
		}
	}

	analise.ItensAmostrados = totalItens
	analise.CFOPDominante = chaveDominante(cfops)
	analise.CSTDominante = chaveDominante(csts)

	if totalItens > 0 {
		analise.FracaoSimples = float64(itensSimples) / float64(totalItens)
	}

	switch {
	case totalItens > 0 && analise.FracaoSimples >= a.limiarSimples:
		analise.Regime = domain.RegimeSimplesNacional
		analise.RegimePisCofins = domain.PisCofinsCumulativo
	case pisNaoCumulativo > pisCumulativo:
		analise.Regime = domain.RegimeLucroReal
		analise.RegimePisCofins = domain.PisCofinsNaoCumulativo
	case pisCumulativo > 0:
		analise.Regime = domain.RegimeLucroPresumido
		analise.RegimePisCofins = domain.PisCofinsCumulativo
	case analise.PossuiIPI || analise.PossuiST:
		// Sem amostra de PIS, a presença de IPI/ST aponta para apuração
		// completa.
		analise.Regime = domain.RegimeLucroReal
		analise.RegimePisCofins = domain.PisCofinsNaoCumulativo
	default:
		analise.Regime = domain.RegimeLucroPresumido
		analise.RegimePisCofins = domain.PisCofinsCumulativo
	}

	return analise
}

func (a *analisador) ExtrairAliquotasEstaduais(notas []domain.NotaFiscal) []domain.AliquotaEstadual {
	type parUF struct{ origem, destino string }
	contagens := make(map[parUF]map[string]int)

	for _, nota := range notas {
		if nota.UFOrigem == "" || nota.UFDestino == "" {
			continue
		}
		par := parUF{nota.UFOrigem, nota.UFDestino}
		for _, item := range nota.Itens {
			if !item.AliquotaICMS.IsPositive() {
				continue
			}
			if contagens[par] == nil {
				contagens[par] = make(map[string]int)
			}
			contagens[par][item.AliquotaICMS.Round(2).String()]++
		}
	}

	var resultado []domain.AliquotaEstadual
	for par, porAliquota := range contagens {
		aliquota, freq, total := modaAliquota(porAliquota)
		resultado = append(resultado, domain.AliquotaEstadual{
			UFOrigem:  par.origem,
			UFDestino: par.destino,
			Aliquota:  aliquota,
			Amostras:  total,
			// Moda pouco representativa: confirmar manualmente.
			Inconsistente: len(porAliquota) > 1 && float64(freq)/float64(total) < 0.8,
		})
	}

	sort.Slice(resultado, func(i, j int) bool {
		if resultado[i].UFOrigem != resultado[j].UFOrigem {
			return resultado[i].UFOrigem < resultado[j].UFOrigem
		}
		return resultado[i].UFDestino < resultado[j].UFDestino
	})
	return resultado
}

func (a *analisador) ExtrairConfiguracoesST(notas []domain.NotaFiscal) []domain.ConfiguracaoST {
	type chaveST struct{ ncm, cfop string }
	contagens := make(map[chaveST]map[string]int)

	for _, nota := range notas {
		for _, item := range nota.Itens {
			if !item.ICMSSTDeclarado.IsPositive() && !CSTComST(item.CSTICMS) {
				continue
			}
			mva := item.MVADeclarado
			if !mva.IsPositive() {
				continue
			}
			chave := chaveST{item.NCM, item.CFOP}
			if contagens[chave] == nil {
				contagens[chave] = make(map[string]int)
			}
			contagens[chave][mva.Round(4).String()]++
		}
	}

	var resultado []domain.ConfiguracaoST
	for chave, porMVA := range contagens {
		mva, _, total := modaAliquota(porMVA)
		resultado = append(resultado, domain.ConfiguracaoST{
			NCM:      chave.ncm,
			CFOP:     chave.cfop,
			MVA:      mva,
			Amostras: total,
		})
	}

	sort.Slice(resultado, func(i, j int) bool {
		if resultado[i].NCM != resultado[j].NCM {
			return resultado[i].NCM < resultado[j].NCM
		}
		return resultado[i].CFOP < resultado[j].CFOP
	})
	return resultado
}

// GerarConfiguracao monta a ConfiguracaoFiscal inteira da empresa. O registro
// é sempre substituído por completo no armazenamento, nunca remendado.
func (a *analisador) GerarConfiguracao(empresa string, notas []domain.NotaFiscal) domain.ConfiguracaoFiscal {
	analise := a.AnalisarRegime(notas)
	return domain.ConfiguracaoFiscal{
		Empresa:            empresa,
		Regime:             analise.Regime,
		RegimePisCofins:    analise.RegimePisCofins,
		AliquotasEstaduais: a.ExtrairAliquotasEstaduais(notas),
		ConfiguracoesST:    a.ExtrairConfiguracoesST(notas),
		Tolerancias:        domain.ToleranciasPadrao(),
		GeradaEm:           time.Now().UTC(),
		NotasAmostradas:    len(notas),
	}
}

// modaAliquota devolve o valor mais frequente do bucket; empate resolve pela
// menor alíquota para manter o resultado independente da ordem de entrada.
func modaAliquota(porValor map[string]int) (decimal.Decimal, int, int) {
	var melhor string
	var freq, total int
	for valor, n := range porValor {
		total += n
		if n > freq {
			melhor, freq = valor, n
			continue
		}
		if n == freq && melhor != "" {
			if d, _ := decimal.NewFromString(valor); d.LessThan(decimal.RequireFromString(melhor)) {
				melhor = valor
			}
		}
	}
	if melhor == "" {
		return decimal.Zero, 0, total
	}
	d, _ := decimal.NewFromString(melhor)
	return d, freq, total
}

// chaveDominante devolve a chave de maior contagem; empate resolve pela menor
// chave em ordem lexicográfica.
func chaveDominante(contagens map[string]int) string {
	var melhor string
	var freq int
	for chave, n := range contagens {
		if n > freq || (n == freq && (melhor == "" || chave < melhor)) {
			melhor, freq = chave, n
		}
	}
	return melhor
}
