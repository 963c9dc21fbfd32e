// internal/repository/firestore.go
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Os dados ficam em subcoleções por empresa:
//
//	empresas/{empresa}/materiais/{codigo}
//	empresas/{empresa}/pedidos/{numero}
//	empresas/{empresa}/contas_pagar/{auto}
//	empresas/{empresa}/resultados/{id}
//	empresas/{empresa}/configuracao/atual
//
// O Firestore não serializa decimal.Decimal; valores monetários flat viram
// float64 no documento e estruturas aninhadas grandes viajam como JSON.

func falha(operacao string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrFalhaColaborador, operacao, err)
}

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// materialDoc é o espelho serializável de domain.Material.
type materialDoc struct {
	Codigo            string   `firestore:"codigo"`
	Descricao         string   `firestore:"descricao"`
	NCM               string   `firestore:"ncm"`
	Unidade           string   `firestore:"unidade"`
	QuantidadeEstoque float64  `firestore:"quantidadeEstoque"`
	CustoMedio        float64  `firestore:"custoMedio"`
	CodigosFornecedor []string `firestore:"codigosFornecedor"`
}

type MaterialRepository struct {
	db *firestore.Client
}

func NewMaterialRepository(db *firestore.Client) *MaterialRepository {
	return &MaterialRepository{db: db}
}

func (r *MaterialRepository) colecao(empresa string) *firestore.CollectionRef {
	return r.db.Collection("empresas").Doc(empresa).Collection("materiais")
}

func (r *MaterialRepository) ListarMateriais(ctx context.Context, empresa string) ([]domain.Material, error) {
	iter := r.colecao(empresa).Documents(ctx)
	defer iter.Stop()

	var materiais []domain.Material
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, falha("listar materiais", err)
		}
		var md materialDoc
		if err := doc.DataTo(&md); err != nil {
			return nil, falha("ler material", err)
		}
		materiais = append(materiais, domain.Material{
			Codigo:            md.Codigo,
			Descricao:         md.Descricao,
			NCM:               md.NCM,
			Unidade:           md.Unidade,
			QuantidadeEstoque: dec(md.QuantidadeEstoque),
			CustoMedio:        dec(md.CustoMedio),
			CodigosFornecedor: md.CodigosFornecedor,
		})
	}
	return materiais, nil
}

func (r *MaterialRepository) AtualizarEstoque(ctx context.Context, empresa, codigo string, quantidade, custoMedio decimal.Decimal) error {
	qtd, _ := quantidade.Float64()
	custo, _ := custoMedio.Float64()
	_, err := r.colecao(empresa).Doc(codigo).Update(ctx, []firestore.Update{
		{Path: "quantidadeEstoque", Value: qtd},
		{Path: "custoMedio", Value: custo},
	})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: material %s", domain.ErrNaoEncontrado, codigo)
	}
	if err != nil {
		return falha("atualizar estoque", err)
	}
	return nil
}

type itemPedidoDoc struct {
	CodigoMaterial string  `firestore:"codigoMaterial"`
	Quantidade     float64 `firestore:"quantidade"`
	ValorUnitario  float64 `firestore:"valorUnitario"`
}

type pedidoDoc struct {
	Numero         string          `firestore:"numero"`
	CNPJFornecedor string          `firestore:"cnpjFornecedor"`
	Aberto         bool            `firestore:"aberto"`
	Itens          []itemPedidoDoc `firestore:"itens"`
}

type PedidoRepository struct {
	db *firestore.Client
}

func NewPedidoRepository(db *firestore.Client) *PedidoRepository {
	return &PedidoRepository{db: db}
}

// BuscarPedidoAberto devolve o pedido em aberto mais antigo do fornecedor, ou
// domain.ErrNaoEncontrado quando não há nenhum.
func (r *PedidoRepository) BuscarPedidoAberto(ctx context.Context, empresa, cnpjFornecedor string) (*domain.PedidoCompra, error) {
	iter := r.db.Collection("empresas").Doc(empresa).Collection("pedidos").
		Where("cnpjFornecedor", "==", cnpjFornecedor).
		Where("aberto", "==", true).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("%w: pedido aberto do fornecedor %s", domain.ErrNaoEncontrado, cnpjFornecedor)
	}
	if err != nil {
		return nil, falha("buscar pedido aberto", err)
	}

	var pd pedidoDoc
	if err := doc.DataTo(&pd); err != nil {
		return nil, falha("ler pedido", err)
	}

	pedido := &domain.PedidoCompra{
		Numero:         pd.Numero,
		CNPJFornecedor: pd.CNPJFornecedor,
		Aberto:         pd.Aberto,
	}
	for _, item := range pd.Itens {
		pedido.Itens = append(pedido.Itens, domain.ItemPedido{
			CodigoMaterial: item.CodigoMaterial,
			Quantidade:     dec(item.Quantidade),
			ValorUnitario:  dec(item.ValorUnitario),
		})
	}
	return pedido, nil
}

type parcelaDoc struct {
	Numero     string    `firestore:"numero"`
	Vencimento time.Time `firestore:"vencimento"`
	Valor      float64   `firestore:"valor"`
}

type contaPagarDoc struct {
	Empresa        string       `firestore:"empresa"`
	CNPJFornecedor string       `firestore:"cnpjFornecedor"`
	NumeroNota     string       `firestore:"numeroNota"`
	ChaveAcesso    string       `firestore:"chaveAcesso"`
	ValorTotal     float64      `firestore:"valorTotal"`
	Parcelas       []parcelaDoc `firestore:"parcelas"`
	CriadaEm       time.Time    `firestore:"criadaEm"`
}

type FinanceiroRepository struct {
	db *firestore.Client
}

func NewFinanceiroRepository(db *firestore.Client) *FinanceiroRepository {
	return &FinanceiroRepository{db: db}
}

func (r *FinanceiroRepository) RegistrarContaPagar(ctx context.Context, conta domain.ContaPagar) error {
	total, _ := conta.ValorTotal.Float64()
	doc := contaPagarDoc{
		Empresa:        conta.Empresa,
		CNPJFornecedor: conta.CNPJFornecedor,
		NumeroNota:     conta.NumeroNota,
		ChaveAcesso:    conta.ChaveAcesso,
		ValorTotal:     total,
		CriadaEm:       time.Now().UTC(),
	}
	for _, p := range conta.Parcelas {
		valor, _ := p.Valor.Float64()
		doc.Parcelas = append(doc.Parcelas, parcelaDoc{
			Numero:     p.Numero,
			Vencimento: p.Vencimento,
			Valor:      valor,
		})
	}

	// A chave de acesso identifica a nota; regravar a mesma nota substitui a
	// conta em vez de duplicá-la.
	_, err := r.db.Collection("empresas").Doc(conta.Empresa).
		Collection("contas_pagar").Doc(conta.ChaveAcesso).Set(ctx, doc)
	if err != nil {
		return falha("registrar conta a pagar", err)
	}
	return nil
}

// resultadoDoc guarda campos chave para consulta e o resultado completo como
// JSON; decimal.Decimal serializa como string no payload e volta sem perda.
type resultadoDoc struct {
	ID          string    `firestore:"id"`
	Empresa     string    `firestore:"empresa"`
	ChaveAcesso string    `firestore:"chaveAcesso"`
	Status      string    `firestore:"status"`
	GeradoEm    time.Time `firestore:"geradoEm"`
	Payload     []byte    `firestore:"payload"`
}

type ResultadoRepository struct {
	db *firestore.Client
}

func NewResultadoRepository(db *firestore.Client) *ResultadoRepository {
	return &ResultadoRepository{db: db}
}

func (r *ResultadoRepository) SalvarResultado(ctx context.Context, resultado domain.ResultadoConciliacao) error {
	payload, err := json.Marshal(resultado)
	if err != nil {
		return falha("serializar resultado", err)
	}
	doc := resultadoDoc{
		ID:          resultado.ID,
		Empresa:     resultado.Empresa,
		ChaveAcesso: resultado.ChaveAcesso,
		Status:      string(resultado.Status),
		GeradoEm:    resultado.GeradoEm,
		Payload:     payload,
	}
	_, err = r.db.Collection("empresas").Doc(resultado.Empresa).
		Collection("resultados").Doc(resultado.ID).Set(ctx, doc)
	if err != nil {
		return falha("salvar resultado", err)
	}
	return nil
}

func (r *ResultadoRepository) BuscarResultado(ctx context.Context, empresa, id string) (*domain.ResultadoConciliacao, error) {
	snap, err := r.db.Collection("empresas").Doc(empresa).
		Collection("resultados").Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: resultado %s", domain.ErrNaoEncontrado, id)
	}
	if err != nil {
		return nil, falha("buscar resultado", err)
	}

	var doc resultadoDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, falha("ler resultado", err)
	}
	var resultado domain.ResultadoConciliacao
	if err := json.Unmarshal(doc.Payload, &resultado); err != nil {
		return nil, falha("desserializar resultado", err)
	}
	return &resultado, nil
}

type configuracaoDoc struct {
	Empresa  string    `firestore:"empresa"`
	GeradaEm time.Time `firestore:"geradaEm"`
	Payload  []byte    `firestore:"payload"`
}

type ConfiguracaoRepository struct {
	db *firestore.Client
}

func NewConfiguracaoRepository(db *firestore.Client) *ConfiguracaoRepository {
	return &ConfiguracaoRepository{db: db}
}

func (r *ConfiguracaoRepository) doc(empresa string) *firestore.DocumentRef {
	return r.db.Collection("empresas").Doc(empresa).Collection("configuracao").Doc("atual")
}

func (r *ConfiguracaoRepository) BuscarConfiguracao(ctx context.Context, empresa string) (*domain.ConfiguracaoFiscal, error) {
	snap, err := r.doc(empresa).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: configuração da empresa %s", domain.ErrNaoEncontrado, empresa)
	}
	if err != nil {
		return nil, falha("buscar configuração", err)
	}

	var doc configuracaoDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, falha("ler configuração", err)
	}
	var config domain.ConfiguracaoFiscal
	if err := json.Unmarshal(doc.Payload, &config); err != nil {
		return nil, falha("desserializar configuração", err)
	}
	return &config, nil
}

// SubstituirConfiguracao grava a configuração por inteiro; nunca existe merge
// campo a campo com a versão anterior.
func (r *ConfiguracaoRepository) SubstituirConfiguracao(ctx context.Context, config domain.ConfiguracaoFiscal) error {
	payload, err := json.Marshal(config)
	if err != nil {
		return falha("serializar configuração", err)
	}
	_, err = r.doc(config.Empresa).Set(ctx, configuracaoDoc{
		Empresa:  config.Empresa,
		GeradaEm: config.GeradaEm,
		Payload:  payload,
	})
	if err != nil {
		return falha("substituir configuração", err)
	}
	return nil
}
