// internal/core/fiscal/patterns.go
package fiscal

import (
	"strings"

	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// Tabelas fiscais de referência: CFOP, CST, alíquotas por UF e dicas de IPI
// por capítulo da NCM. São dados imutáveis e todas as funções deste arquivo
// são totais: código desconhecido vira classificação "desconhecida", nunca
// erro, porque notas legais podem carregar códigos fora do padrão.

const (
	OperacaoVenda            = "venda"
	OperacaoCompra           = "compra"
	OperacaoDevolucao        = "devolucao"
	OperacaoTransferencia    = "transferencia"
	OperacaoRemessa          = "remessa"
	OperacaoBonificacao      = "bonificacao"
	OperacaoIndustrializacao = "industrializacao"
	OperacaoAtivoImobilizado = "ativo_imobilizado"
	OperacaoOutra            = "outra"
	OperacaoDesconhecida     = "desconhecida"

	DirecaoEntrada      = "entrada"
	DirecaoSaida        = "saida"
	DirecaoDesconhecida = "desconhecida"

	AmbitoEstadual      = "estadual"
	AmbitoInterestadual = "interestadual"
	AmbitoExterior      = "exterior"
	AmbitoDesconhecido  = "desconhecido"
)

// ClassificacaoCFOP é o resultado da análise de um código CFOP.
type ClassificacaoCFOP struct {
	Codigo  string `json:"codigo"`
	Tipo    string `json:"tipo"`
	Direcao string `json:"direcao"`
	Ambito  string `json:"ambito"`
}

// sufixos de CFOP com tipo de operação conhecido (vale para qualquer dígito
// inicial da mesma direção).
var tiposPorSufixo = map[string]string{
	"101": OperacaoVenda, // na entrada vira compra; ajustado em ClassificarCFOP
	"102": OperacaoVenda,
	"104": OperacaoVenda,
	"105": OperacaoVenda,
	"106": OperacaoVenda,
	"116": OperacaoVenda,
	"117": OperacaoVenda,
	"120": OperacaoVenda,
	"122": OperacaoIndustrializacao,
	"124": OperacaoIndustrializacao,
	"125": OperacaoIndustrializacao,
	"151": OperacaoTransferencia,
	"152": OperacaoTransferencia,
	"201": OperacaoDevolucao,
	"202": OperacaoDevolucao,
	"208": OperacaoDevolucao,
	"209": OperacaoDevolucao,
	"401": OperacaoVenda,
	"403": OperacaoVenda,
	"405": OperacaoVenda,
	"410": OperacaoDevolucao,
	"411": OperacaoDevolucao,
	"551": OperacaoAtivoImobilizado,
	"552": OperacaoAtivoImobilizado,
	"910": OperacaoBonificacao,
	"911": OperacaoRemessa,
	"912": OperacaoRemessa,
	"915": OperacaoRemessa,
	"916": OperacaoRemessa,
	"949": OperacaoOutra,
}

// ClassificarCFOP decompõe o CFOP em tipo, direção e âmbito. Função total:
// códigos fora do padrão retornam campos "desconhecido".
func ClassificarCFOP(codigo string) ClassificacaoCFOP {
	c := ClassificacaoCFOP{
		Codigo:  codigo,
		Tipo:    OperacaoDesconhecida,
		Direcao: DirecaoDesconhecida,
		Ambito:  AmbitoDesconhecido,
	}
	codigo = strings.TrimSpace(codigo)
	if len(codigo) != 4 {
		return c
	}

	switch codigo[0] {
	case '1':
		c.Direcao, c.Ambito = DirecaoEntrada, AmbitoEstadual
	case '2':
		c.Direcao, c.Ambito = DirecaoEntrada, AmbitoInterestadual
	case '3':
		c.Direcao, c.Ambito = DirecaoEntrada, AmbitoExterior
	case '5':
		c.Direcao, c.Ambito = DirecaoSaida, AmbitoEstadual
	case '6':
		c.Direcao, c.Ambito = DirecaoSaida, AmbitoInterestadual
	case '7':
		c.Direcao, c.Ambito = DirecaoSaida, AmbitoExterior
	default:
		return c
	}

	if tipo, ok := tiposPorSufixo[codigo[1:]]; ok {
		c.Tipo = tipo
		// Os sufixos de venda/industrialização na direção de entrada são
		// compras sob a ótica de quem recebe a nota.
		if c.Direcao == DirecaoEntrada && (tipo == OperacaoVenda || tipo == OperacaoIndustrializacao) {
			c.Tipo = OperacaoCompra
		}
	}
	return c
}

// SugerirCFOP devolve códigos candidatos para um tipo de operação e âmbito.
func SugerirCFOP(tipo, ambito string) []string {
	prefixoSaida, prefixoEntrada := "5", "1"
	switch ambito {
	case AmbitoInterestadual:
		prefixoSaida, prefixoEntrada = "6", "2"
	case AmbitoExterior:
		prefixoSaida, prefixoEntrada = "7", "3"
	}

	switch tipo {
	case OperacaoVenda:
		return []string{prefixoSaida + "101", prefixoSaida + "102", prefixoSaida + "405"}
	case OperacaoCompra:
		return []string{prefixoEntrada + "101", prefixoEntrada + "102", prefixoEntrada + "403"}
	case OperacaoDevolucao:
		return []string{prefixoSaida + "201", prefixoSaida + "202"}
	case OperacaoTransferencia:
		return []string{prefixoSaida + "151", prefixoSaida + "152"}
	case OperacaoRemessa:
		return []string{prefixoSaida + "915", prefixoSaida + "949"}
	case OperacaoBonificacao:
		return []string{prefixoSaida + "910"}
	case OperacaoIndustrializacao:
		return []string{prefixoSaida + "124", prefixoSaida + "125"}
	case OperacaoAtivoImobilizado:
		return []string{prefixoSaida + "551"}
	}
	return nil
}

// descrições de CST de ICMS (regime normal).
var cstIcms = map[string]string{
	"00": "Tributada integralmente",
	"10": "Tributada e com cobrança do ICMS por substituição tributária",
	"20": "Com redução de base de cálculo",
	"30": "Isenta ou não tributada e com cobrança do ICMS por substituição tributária",
	"40": "Isenta",
	"41": "Não tributada",
	"50": "Suspensão",
	"51": "Diferimento",
	"60": "ICMS cobrado anteriormente por substituição tributária",
	"70": "Com redução de base de cálculo e cobrança do ICMS por substituição tributária",
	"90": "Outras",
}

// descrições de CSOSN (Simples Nacional).
var csosn = map[string]string{
	"101": "Tributada pelo Simples Nacional com permissão de crédito",
	"102": "Tributada pelo Simples Nacional sem permissão de crédito",
	"103": "Isenção do ICMS no Simples Nacional para faixa de receita bruta",
	"201": "Tributada pelo Simples Nacional com permissão de crédito e com cobrança do ICMS por ST",
	"202": "Tributada pelo Simples Nacional sem permissão de crédito e com cobrança do ICMS por ST",
	"203": "Isenção do ICMS no Simples Nacional para faixa de receita bruta e com cobrança do ICMS por ST",
	"300": "Imune",
	"400": "Não tributada pelo Simples Nacional",
	"500": "ICMS cobrado anteriormente por substituição tributária ou por antecipação",
	"900": "Outros",
}

// descrições de CST de PIS/COFINS (subconjunto corrente).
var cstPisCofins = map[string]string{
	"01": "Operação tributável com alíquota básica",
	"02": "Operação tributável com alíquota diferenciada",
	"03": "Operação tributável com alíquota por unidade de medida de produto",
	"04": "Operação tributável monofásica - revenda a alíquota zero",
	"05": "Operação tributável por substituição tributária",
	"06": "Operação tributável a alíquota zero",
	"07": "Operação isenta da contribuição",
	"08": "Operação sem incidência da contribuição",
	"09": "Operação com suspensão da contribuição",
	"49": "Outras operações de saída",
	"50": "Operação com direito a crédito - vinculada exclusivamente a receita tributada no mercado interno",
	"99": "Outras operações",
}

// DescreverCST devolve a descrição do CST para o regime informado; regime
// Simples consulta a tabela de CSOSN. Código desconhecido devolve um texto
// explícito, nunca erro.
func DescreverCST(regime domain.RegimeTributario, codigo string) string {
	codigo = strings.TrimSpace(codigo)
	if regime == domain.RegimeSimplesNacional || len(codigo) == 3 {
		if d, ok := csosn[codigo]; ok {
			return d
		}
		return "CSOSN desconhecido"
	}
	if d, ok := cstIcms[codigo]; ok {
		return d
	}
	if d, ok := cstPisCofins[codigo]; ok {
		return d
	}
	return "CST desconhecido"
}

// CSTSimples indica um código do Simples Nacional (CSOSN de 3 dígitos).
func CSTSimples(codigo string) bool {
	return len(strings.TrimSpace(codigo)) == 3
}

// CSTIsentoICMS indica que o item não destaca ICMS próprio (isenção,
// não-incidência, suspensão ou ST já retida na etapa anterior).
func CSTIsentoICMS(codigo string) bool {
	switch strings.TrimSpace(codigo) {
	case "40", "41", "50", "60", "103", "300", "400", "500":
		return true
	}
	return false
}

// CSTComST indica cobrança de ICMS por substituição tributária na operação.
func CSTComST(codigo string) bool {
	switch strings.TrimSpace(codigo) {
	case "10", "30", "70", "201", "202", "203":
		return true
	}
	return false
}

// CSTPisCofinsExonerado indica CST de PIS/COFINS sem contribuição devida.
func CSTPisCofinsExonerado(codigo string) bool {
	switch strings.TrimSpace(codigo) {
	case "04", "05", "06", "07", "08", "09":
		return true
	}
	return false
}

// alíquotas internas de ICMS por UF (valores de referência; a configuração da
// empresa prevalece quando existir).
var aliquotaInternaUF = map[string]string{
	"AC": "19", "AL": "19", "AM": "20", "AP": "18", "BA": "20.5",
	"CE": "20", "DF": "20", "ES": "17", "GO": "19", "MA": "22",
	"MG": "18", "MS": "17", "MT": "17", "PA": "19", "PB": "20",
	"PE": "20.5", "PI": "21", "PR": "19.5", "RJ": "20", "RN": "18",
	"RO": "19.5", "RR": "20", "RS": "17", "SC": "17", "SE": "19",
	"SP": "18", "TO": "20",
}

// UFs de origem cuja saída para as regiões Norte/Nordeste/Centro-Oeste e ES
// usa alíquota interestadual de 7%.
var ufSulSudeste = map[string]bool{
	"SP": true, "RJ": true, "MG": true, "PR": true, "SC": true, "RS": true,
}

var ufDestino7 = map[string]bool{
	"AC": true, "AL": true, "AM": true, "AP": true, "BA": true, "CE": true,
	"DF": true, "ES": true, "GO": true, "MA": true, "MS": true, "MT": true,
	"PA": true, "PB": true, "PE": true, "PI": true, "RN": true, "RO": true,
	"RR": true, "SE": true, "TO": true,
}

// AliquotaInterna devolve a alíquota interna de referência da UF.
func AliquotaInterna(uf string) (decimal.Decimal, bool) {
	s, ok := aliquotaInternaUF[strings.ToUpper(strings.TrimSpace(uf))]
	if !ok {
		return decimal.Zero, false
	}
	d, _ := decimal.NewFromString(s)
	return d, true
}

// AliquotaInterestadualPadrao devolve a alíquota default para o par de UFs:
// interna quando origem == destino; 7% de Sul/Sudeste para
// Norte/Nordeste/Centro-Oeste e ES; 12% nos demais fluxos interestaduais.
func AliquotaInterestadualPadrao(ufOrigem, ufDestino string) (decimal.Decimal, bool) {
	ufOrigem = strings.ToUpper(strings.TrimSpace(ufOrigem))
	ufDestino = strings.ToUpper(strings.TrimSpace(ufDestino))
	if ufOrigem == "" || ufDestino == "" {
		return decimal.Zero, false
	}
	if ufOrigem == ufDestino {
		return AliquotaInterna(ufOrigem)
	}
	if _, ok := aliquotaInternaUF[ufOrigem]; !ok {
		return decimal.Zero, false
	}
	if _, ok := aliquotaInternaUF[ufDestino]; !ok {
		return decimal.Zero, false
	}
	if ufSulSudeste[ufOrigem] && ufDestino7[ufDestino] {
		return decimal.NewFromInt(7), true
	}
	return decimal.NewFromInt(12), true
}

// dicas de alíquota de IPI por capítulo da NCM (2 primeiros dígitos).
var ipiPorCapituloNCM = map[string]string{
	"22": "10", "24": "30", "33": "12", "34": "5", "39": "5",
	"40": "5", "48": "5", "69": "5", "70": "8", "73": "5",
	"84": "5", "85": "10", "87": "13", "94": "5", "95": "10",
}

// AliquotaIPIPorNCM devolve a alíquota de IPI sugerida pelo capítulo da NCM.
// NCM desconhecida ou de capítulo sem incidência devolve ok=false.
func AliquotaIPIPorNCM(ncm string) (decimal.Decimal, bool) {
	ncm = strings.TrimSpace(ncm)
	if len(ncm) < 2 {
		return decimal.Zero, false
	}
	s, ok := ipiPorCapituloNCM[ncm[:2]]
	if !ok {
		return decimal.Zero, false
	}
	d, _ := decimal.NewFromString(s)
	return d, true
}

// CFOPIndicaIPI diz se a natureza da operação comporta incidência de IPI
// (saída de produção própria ou operação de industrialização).
func CFOPIndicaIPI(codigo string) bool {
	c := ClassificarCFOP(codigo)
	if c.Tipo == OperacaoIndustrializacao {
		return true
	}
	if len(codigo) == 4 {
		switch codigo[1:] {
		case "101", "105", "111", "116", "120", "122", "124", "125", "401":
			return true
		}
	}
	return false
}
