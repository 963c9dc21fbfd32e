// internal/domain/config.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegimeTributario é o regime inferido pelo analisador.
type RegimeTributario string

const (
	RegimeSimplesNacional RegimeTributario = "SIMPLES_NACIONAL"
	RegimeLucroPresumido  RegimeTributario = "LUCRO_PRESUMIDO"
	RegimeLucroReal       RegimeTributario = "LUCRO_REAL"
)

// RegimePisCofins define as alíquotas federais aplicáveis.
type RegimePisCofins string

const (
	PisCofinsCumulativo    RegimePisCofins = "CUMULATIVO"     // 0,65% / 3%
	PisCofinsNaoCumulativo RegimePisCofins = "NAO_CUMULATIVO" // 1,65% / 7,6%
)

// AliquotaEstadual é a alíquota de ICMS observada para um par de UFs.
type AliquotaEstadual struct {
	UFOrigem      string          `json:"uf_origem"`
	UFDestino     string          `json:"uf_destino"`
	Aliquota      decimal.Decimal `json:"aliquota"`
	Amostras      int             `json:"amostras"`
	Inconsistente bool            `json:"inconsistente"` // variância alta: confirmar manualmente
}

// ConfiguracaoST é a substituição tributária observada para NCM+CFOP.
type ConfiguracaoST struct {
	NCM      string          `json:"ncm"`
	CFOP     string          `json:"cfop"`
	MVA      decimal.Decimal `json:"mva"` // fração: 0,40 = 40% de margem
	Amostras int             `json:"amostras"`
}

// Tolerancias são os limiares de divergência por empresa; vêm da configuração,
// nunca de constantes no código.
type Tolerancias struct {
	ImpostoAbsoluto   decimal.Decimal `json:"imposto_absoluto"`   // R$ 0,05
	ImpostoPercentual decimal.Decimal `json:"imposto_percentual"` // 0,01 = 1%
	Quantidade        decimal.Decimal `json:"quantidade"`         // 0,05 = 5%
	Preco             decimal.Decimal `json:"preco"`              // 0,10 = 10%
	ConfiancaMinima   float64         `json:"confianca_minima"`   // 0,6
}

// ToleranciasPadrao devolve os limiares usados quando a empresa ainda não
// configurou os seus.
func ToleranciasPadrao() Tolerancias {
	return Tolerancias{
		ImpostoAbsoluto:   decimal.NewFromFloat(0.05),
		ImpostoPercentual: decimal.NewFromFloat(0.01),
		Quantidade:        decimal.NewFromFloat(0.05),
		Preco:             decimal.NewFromFloat(0.10),
		ConfiancaMinima:   0.6,
	}
}

// ConfiguracaoFiscal é derivada das notas históricas da empresa pelo
// analisador de regime. É sempre regenerada e substituída por inteiro, nunca
// alterada campo a campo.
type ConfiguracaoFiscal struct {
	Empresa            string             `json:"empresa"`
	Regime             RegimeTributario   `json:"regime"`
	RegimePisCofins    RegimePisCofins    `json:"regime_pis_cofins"`
	AliquotasEstaduais []AliquotaEstadual `json:"aliquotas_estaduais"`
	ConfiguracoesST    []ConfiguracaoST   `json:"configuracoes_st"`
	Tolerancias        Tolerancias        `json:"tolerancias"`
	GeradaEm           time.Time          `json:"gerada_em"`
	NotasAmostradas    int                `json:"notas_amostradas"`
}

// Aliquota devolve a alíquota configurada para o par de UFs, se houver.
func (c ConfiguracaoFiscal) Aliquota(ufOrigem, ufDestino string) (decimal.Decimal, bool) {
	for _, a := range c.AliquotasEstaduais {
		if a.UFOrigem == ufOrigem && a.UFDestino == ufDestino && !a.Inconsistente {
			return a.Aliquota, true
		}
	}
	return decimal.Zero, false
}

// MVA devolve a margem de valor agregado configurada para NCM+CFOP, se houver.
func (c ConfiguracaoFiscal) MVA(ncm, cfop string) (decimal.Decimal, bool) {
	for _, st := range c.ConfiguracoesST {
		if st.NCM == ncm && st.CFOP == cfop {
			return st.MVA, true
		}
	}
	return decimal.Zero, false
}

// AnaliseRegime é o diagnóstico produzido a partir das notas históricas.
type AnaliseRegime struct {
	Regime             RegimeTributario `json:"regime"`
	RegimePisCofins    RegimePisCofins  `json:"regime_pis_cofins"`
	FracaoSimples      float64          `json:"fracao_simples"` // fração de itens com CSOSN
	ItensAmostrados    int              `json:"itens_amostrados"`
	NotasAmostradas    int              `json:"notas_amostradas"`
	PossuiIPI          bool             `json:"possui_ipi"`
	PossuiST           bool             `json:"possui_st"`
	CFOPDominante      string           `json:"cfop_dominante"`
	CSTDominante       string           `json:"cst_dominante"`
}
