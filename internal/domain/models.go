// internal/domain/models.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotaFiscal é o resultado imutável do parse de um XML de NF-e.
type NotaFiscal struct {
	ChaveAcesso      string          `json:"chave_acesso"`
	Numero           string          `json:"numero"`
	Serie            string          `json:"serie"`
	Versao           string          `json:"versao"`
	NaturezaOperacao string          `json:"natureza_operacao"`
	DataEmissao      time.Time       `json:"data_emissao"`
	CNPJEmitente     string          `json:"cnpj_emitente"`
	NomeEmitente     string          `json:"nome_emitente"`
	UFOrigem         string          `json:"uf_origem"`
	CNPJDestinatario string          `json:"cnpj_destinatario"`
	NomeDestinatario string          `json:"nome_destinatario"`
	UFDestino        string          `json:"uf_destino"`
	ValorTotal       decimal.Decimal `json:"valor_total"`
	Itens            []ItemNota      `json:"itens"`
	Duplicatas       []Duplicata     `json:"duplicatas,omitempty"`
}

// ItemNota carrega os valores declarados no XML; eles podem divergir dos
// valores recalculados pela calculadora.
type ItemNota struct {
	Sequencia       int             `json:"sequencia"`
	Codigo          string          `json:"codigo"`
	EAN             string          `json:"ean,omitempty"`
	Descricao       string          `json:"descricao"`
	NCM             string          `json:"ncm"`
	CFOP            string          `json:"cfop"`
	Unidade         string          `json:"unidade"`
	UFOrigem        string          `json:"uf_origem"`
	UFDestino       string          `json:"uf_destino"`
	Quantidade      decimal.Decimal `json:"quantidade"`
	ValorUnitario   decimal.Decimal `json:"valor_unitario"`
	ValorTotal      decimal.Decimal `json:"valor_total"`
	CSTICMS         string          `json:"cst_icms"`
	CSTPIS          string          `json:"cst_pis"`
	CSTCOFINS       string          `json:"cst_cofins"`
	AliquotaICMS    decimal.Decimal `json:"aliquota_icms"`
	MVADeclarado    decimal.Decimal `json:"mva_declarado"`
	ICMSDeclarado   decimal.Decimal `json:"icms_declarado"`
	ICMSSTDeclarado decimal.Decimal `json:"icms_st_declarado"`
	IPIDeclarado    decimal.Decimal `json:"ipi_declarado"`
	PISDeclarado    decimal.Decimal `json:"pis_declarado"`
	COFINSDeclarado decimal.Decimal `json:"cofins_declarado"`
}

// Duplicata é uma parcela de cobrança da nota, usada para montar os
// vencimentos da conta a pagar.
type Duplicata struct {
	Numero     string          `json:"numero"`
	Vencimento time.Time       `json:"vencimento"`
	Valor      decimal.Decimal `json:"valor"`
}

// DetalhamentoImpostos é o resultado calculado para um item. Valores
// monetários já arredondados a 2 casas (half-up); alíquotas em percentual
// (18 = 18%).
type DetalhamentoImpostos struct {
	Sequencia      int             `json:"sequencia"`
	BaseCalculo    decimal.Decimal `json:"base_calculo"`
	ICMS           decimal.Decimal `json:"icms"`
	AliquotaICMS   decimal.Decimal `json:"aliquota_icms"`
	ICMSST         decimal.Decimal `json:"icms_st"`
	BaseST         decimal.Decimal `json:"base_st"`
	IPI            decimal.Decimal `json:"ipi"`
	AliquotaIPI    decimal.Decimal `json:"aliquota_ipi"`
	PIS            decimal.Decimal `json:"pis"`
	AliquotaPIS    decimal.Decimal `json:"aliquota_pis"`
	COFINS         decimal.Decimal `json:"cofins"`
	AliquotaCOFINS decimal.Decimal `json:"aliquota_cofins"`
	TotalImpostos  decimal.Decimal `json:"total_impostos"`
	Avisos         []string        `json:"avisos,omitempty"`
}

// TotaisImpostos soma os detalhamentos já arredondados de cada item; não há
// novo arredondamento no nível do total.
type TotaisImpostos struct {
	BaseCalculo   decimal.Decimal `json:"base_calculo"`
	ICMS          decimal.Decimal `json:"icms"`
	ICMSST        decimal.Decimal `json:"icms_st"`
	IPI           decimal.Decimal `json:"ipi"`
	PIS           decimal.Decimal `json:"pis"`
	COFINS        decimal.Decimal `json:"cofins"`
	TotalImpostos decimal.Decimal `json:"total_impostos"`
	Avisos        []string        `json:"avisos,omitempty"`
}

// Material é o cadastro interno contra o qual os itens da nota são casados.
type Material struct {
	Codigo            string          `json:"codigo"`
	Descricao         string          `json:"descricao"`
	NCM               string          `json:"ncm"`
	Unidade           string          `json:"unidade"`
	QuantidadeEstoque decimal.Decimal `json:"quantidade_estoque"`
	CustoMedio        decimal.Decimal `json:"custo_medio"`
	CodigosFornecedor []string        `json:"codigos_fornecedor,omitempty"`
}

// PedidoCompra é um pedido em aberto do fornecedor da nota.
type PedidoCompra struct {
	Numero         string       `json:"numero"`
	CNPJFornecedor string       `json:"cnpj_fornecedor"`
	Aberto         bool         `json:"aberto"`
	Itens          []ItemPedido `json:"itens"`
}

type ItemPedido struct {
	CodigoMaterial string          `json:"codigo_material"`
	Quantidade     decimal.Decimal `json:"quantidade"`
	ValorUnitario  decimal.Decimal `json:"valor_unitario"`
}

// CorrespondenciaMaterial liga um item da nota a um material interno.
type CorrespondenciaMaterial struct {
	Sequencia      int     `json:"sequencia"`
	CodigoMaterial string  `json:"codigo_material"`
	Criterio       string  `json:"criterio"` // "codigo_exato" ou "ncm_descricao"
	Confianca      float64 `json:"confianca"`
}

// TipoDivergencia identifica a natureza de uma divergência encontrada.
type TipoDivergencia string

const (
	DivergenciaImposto    TipoDivergencia = "imposto"
	DivergenciaQuantidade TipoDivergencia = "quantidade"
	DivergenciaPreco      TipoDivergencia = "preco"
)

// Divergencia registra um confronto declarado × esperado fora da tolerância.
type Divergencia struct {
	Tipo            TipoDivergencia `json:"tipo"`
	Sequencia       int             `json:"sequencia"`
	Campo           string          `json:"campo"`
	Declarado       decimal.Decimal `json:"declarado"`
	Esperado        decimal.Decimal `json:"esperado"`
	DeltaAbsoluto   decimal.Decimal `json:"delta_absoluto"`
	DeltaPercentual decimal.Decimal `json:"delta_percentual"`
}

// StatusConciliacao é o estado terminal de uma conciliação.
type StatusConciliacao string

const (
	StatusAprovadaAutomaticamente StatusConciliacao = "AUTO_APPROVED"
	StatusRevisaoManual           StatusConciliacao = "NEEDS_REVIEW"
	StatusRejeitada               StatusConciliacao = "REJECTED"
)

// EtapaConciliacao marca o progresso do pipeline por nota.
type EtapaConciliacao string

const (
	EtapaParse             EtapaConciliacao = "PARSED"
	EtapaImpostosValidados EtapaConciliacao = "TAX_VALIDATED"
	EtapaItensCasados      EtapaConciliacao = "ITEMS_MATCHED"
)

// ItemSemCorrespondencia guarda o item que não casou com nenhum material,
// com sugestões de descrição próxima para a revisão manual.
type ItemSemCorrespondencia struct {
	Sequencia int      `json:"sequencia"`
	Codigo    string   `json:"codigo"`
	Descricao string   `json:"descricao"`
	Sugestoes []string `json:"sugestoes,omitempty"`
}

// ResultadoConciliacao é o desfecho de uma execução do pipeline para uma nota.
type ResultadoConciliacao struct {
	ID                  string                    `json:"id"`
	Empresa             string                    `json:"empresa"`
	ChaveAcesso         string                    `json:"chave_acesso"`
	NumeroNota          string                    `json:"numero_nota"`
	CNPJFornecedor      string                    `json:"cnpj_fornecedor"`
	Status              StatusConciliacao         `json:"status"`
	Etapa               EtapaConciliacao          `json:"etapa"`
	NumeroPedido        string                    `json:"numero_pedido,omitempty"`
	Correspondencias    []CorrespondenciaMaterial `json:"correspondencias"`
	ItensSemMatch       []ItemSemCorrespondencia  `json:"itens_sem_correspondencia,omitempty"`
	ItensComDivergencia []int                     `json:"itens_com_divergencia,omitempty"`
	Divergencias        []Divergencia             `json:"divergencias,omitempty"`
	Impostos            TotaisImpostos            `json:"impostos"`
	Nota                NotaFiscal                `json:"nota"`
	GeradoEm            time.Time                 `json:"gerado_em"`
	Efetivada           bool                      `json:"efetivada"`
}

// ContaPagar é o registro emitido para o colaborador financeiro na aprovação.
type ContaPagar struct {
	Empresa        string          `json:"empresa"`
	CNPJFornecedor string          `json:"cnpj_fornecedor"`
	NumeroNota     string          `json:"numero_nota"`
	ChaveAcesso    string          `json:"chave_acesso"`
	ValorTotal     decimal.Decimal `json:"valor_total"`
	Parcelas       []Duplicata     `json:"parcelas"`
}

// MetodoDepreciacao seleciona a calculadora de depreciação.
type MetodoDepreciacao string

const (
	MetodoLinear           MetodoDepreciacao = "linear"
	MetodoSaldoDecrescente MetodoDepreciacao = "saldo_decrescente"
	MetodoSomaDigitos      MetodoDepreciacao = "soma_digitos"
)

// PeriodoDepreciacao é uma linha do cronograma.
type PeriodoDepreciacao struct {
	Periodo      int             `json:"periodo"`
	SaldoInicial decimal.Decimal `json:"saldo_inicial"`
	Depreciacao  decimal.Decimal `json:"depreciacao"`
	SaldoFinal   decimal.Decimal `json:"saldo_final"`
}

// CronogramaDepreciacao é determinístico: os mesmos parâmetros reproduzem a
// mesma sequência de períodos.
type CronogramaDepreciacao struct {
	Metodo        MetodoDepreciacao    `json:"metodo"`
	Custo         decimal.Decimal      `json:"custo"`
	ValorResidual decimal.Decimal      `json:"valor_residual"`
	Periodos      []PeriodoDepreciacao `json:"periodos"`
}

// TipoBaixa classifica o resultado da baixa de um ativo.
type TipoBaixa string

const (
	BaixaGanho  TipoBaixa = "ganho"
	BaixaPerda  TipoBaixa = "perda"
	BaixaNeutra TipoBaixa = "neutra"
)

// ResultadoBaixa é o ganho ou perda na alienação de um ativo.
type ResultadoBaixa struct {
	Tipo  TipoBaixa       `json:"tipo"`
	Valor decimal.Decimal `json:"valor"`
}
