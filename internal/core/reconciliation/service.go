// internal/core/reconciliation/service.go
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/frmerp/fiscal-engine/internal/core/fiscal"
	"github.com/frmerp/fiscal-engine/internal/core/nfe"
	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrResultadoNaoPendente indica tentativa de aprovar manualmente um
// resultado que não está aguardando revisão.
var ErrResultadoNaoPendente = errors.New("resultado não está pendente de revisão manual")

// Interfaces do colaborador de persistência, na ótica de quem consome.
// Falhas chegam embrulhadas em domain.ErrFalhaColaborador e abortam a
// execução corrente; ausência de registro vem como domain.ErrNaoEncontrado.

type MaterialRepository interface {
	ListarMateriais(ctx context.Context, empresa string) ([]domain.Material, error)
	AtualizarEstoque(ctx context.Context, empresa, codigo string, quantidade, custoMedio decimal.Decimal) error
}

type PedidoRepository interface {
	BuscarPedidoAberto(ctx context.Context, empresa, cnpjFornecedor string) (*domain.PedidoCompra, error)
}

type FinanceiroRepository interface {
	RegistrarContaPagar(ctx context.Context, conta domain.ContaPagar) error
}

type ResultadoRepository interface {
	SalvarResultado(ctx context.Context, resultado domain.ResultadoConciliacao) error
	BuscarResultado(ctx context.Context, empresa, id string) (*domain.ResultadoConciliacao, error)
}

type ConfiguracaoRepository interface {
	BuscarConfiguracao(ctx context.Context, empresa string) (*domain.ConfiguracaoFiscal, error)
}

// Service orquestra o pipeline de conciliação de uma NF-e de entrada:
// parse → validação de impostos → matching de itens e pedido → desfecho.
// Efeitos colaterais (custo médio, conta a pagar, resultado persistido) só
// acontecem na aprovação.
type Service interface {
	Conciliar(ctx context.Context, empresa string, xmlFile io.Reader) (*domain.ResultadoConciliacao, error)
	AprovarManual(ctx context.Context, empresa, resultadoID string) (*domain.ResultadoConciliacao, error)
}

type service struct {
	parser        nfe.Service
	calculadora   fiscal.Calculadora
	materiais     MaterialRepository
	pedidos       PedidoRepository
	financeiro    FinanceiroRepository
	resultados    ResultadoRepository
	configuracoes ConfiguracaoRepository
	logger        *zap.Logger
}

func NewService(
	parser nfe.Service,
	calculadora fiscal.Calculadora,
	materiais MaterialRepository,
	pedidos PedidoRepository,
	financeiro FinanceiroRepository,
	resultados ResultadoRepository,
	configuracoes ConfiguracaoRepository,
	logger *zap.Logger,
) Service {
	return &service{
		parser:        parser,
		calculadora:   calculadora,
		materiais:     materiais,
		pedidos:       pedidos,
		financeiro:    financeiro,
		resultados:    resultados,
		configuracoes: configuracoes,
		logger:        logger,
	}
}

func (s *service) Conciliar(ctx context.Context, empresa string, xmlFile io.Reader) (*domain.ResultadoConciliacao, error) {
	// Falha de parse encerra tudo: nada a jusante roda, nada é persistido.
	nota, err := s.parser.Parse(xmlFile)
	if err != nil {
		return nil, err
	}

	config, err := s.buscarConfiguracao(ctx, empresa)
	if err != nil {
		return nil, err
	}

	resultado := &domain.ResultadoConciliacao{
		ID:             uuid.NewString(),
		Empresa:        empresa,
		ChaveAcesso:    nota.ChaveAcesso,
		NumeroNota:     nota.Numero,
		CNPJFornecedor: nota.CNPJEmitente,
		Etapa:          domain.EtapaParse,
		Nota:           *nota,
		GeradoEm:       time.Now().UTC(),
	}

	s.validarImpostos(resultado, config)
	resultado.Etapa = domain.EtapaImpostosValidados

	pedido, err := s.casarItens(ctx, resultado, config)
	if err != nil {
		return nil, err
	}
	resultado.Etapa = domain.EtapaItensCasados

	s.definirStatus(resultado, pedido)

	if resultado.Status == domain.StatusAprovadaAutomaticamente {
		if err := s.efetivar(ctx, resultado); err != nil {
			return nil, err
		}
	}

	if err := s.resultados.SalvarResultado(ctx, *resultado); err != nil {
		return nil, err
	}

	s.logger.Info("conciliação concluída",
		zap.String("empresa", empresa),
		zap.String("chave_acesso", resultado.ChaveAcesso),
		zap.String("status", string(resultado.Status)),
		zap.Int("divergencias", len(resultado.Divergencias)),
		zap.Int("itens_sem_correspondencia", len(resultado.ItensSemMatch)))

	return resultado, nil
}

// AprovarManual efetiva um resultado que ficou em revisão: atualiza custo
// médio dos itens casados e emite a conta a pagar.
func (s *service) AprovarManual(ctx context.Context, empresa, resultadoID string) (*domain.ResultadoConciliacao, error) {
	resultado, err := s.resultados.BuscarResultado(ctx, empresa, resultadoID)
	if err != nil {
		return nil, err
	}
	if resultado.Status != domain.StatusRevisaoManual || resultado.Efetivada {
		return nil, fmt.Errorf("%w: status %s", ErrResultadoNaoPendente, resultado.Status)
	}

	if err := s.efetivar(ctx, resultado); err != nil {
		return nil, err
	}
	if err := s.resultados.SalvarResultado(ctx, *resultado); err != nil {
		return nil, err
	}

	s.logger.Info("conciliação aprovada manualmente",
		zap.String("empresa", empresa),
		zap.String("resultado_id", resultadoID))
	return resultado, nil
}

func (s *service) buscarConfiguracao(ctx context.Context, empresa string) (domain.ConfiguracaoFiscal, error) {
	config, err := s.configuracoes.BuscarConfiguracao(ctx, empresa)
	if errors.Is(err, domain.ErrNaoEncontrado) {
		// Empresa sem configuração derivada ainda: calcula com as tabelas de
		// referência e tolerâncias padrão.
		return domain.ConfiguracaoFiscal{
			Empresa:     empresa,
			Tolerancias: domain.ToleranciasPadrao(),
		}, nil
	}
	if err != nil {
		return domain.ConfiguracaoFiscal{}, err
	}
	if config.Tolerancias.ImpostoAbsoluto.IsZero() && config.Tolerancias.ConfiancaMinima == 0 {
		// Configuração gerada antes de a empresa definir tolerâncias.
		config.Tolerancias = domain.ToleranciasPadrao()
	}
	return *config, nil
}

// validarImpostos confronta, imposto a imposto, o valor declarado no XML com
// o recalculado. Divergência marca o item e segue adiante; ela nunca
// interrompe o pipeline.
func (s *service) validarImpostos(resultado *domain.ResultadoConciliacao, config domain.ConfiguracaoFiscal) {
	divergentes := make(map[int]bool)

	for _, item := range resultado.Nota.Itens {
		det := s.calculadora.CalcularImpostosItem(item, config)

		resultado.Impostos.BaseCalculo = resultado.Impostos.BaseCalculo.Add(det.BaseCalculo)
		resultado.Impostos.ICMS = resultado.Impostos.ICMS.Add(det.ICMS)
		resultado.Impostos.ICMSST = resultado.Impostos.ICMSST.Add(det.ICMSST)
		resultado.Impostos.IPI = resultado.Impostos.IPI.Add(det.IPI)
		resultado.Impostos.PIS = resultado.Impostos.PIS.Add(det.PIS)
		resultado.Impostos.COFINS = resultado.Impostos.COFINS.Add(det.COFINS)
		resultado.Impostos.TotalImpostos = resultado.Impostos.TotalImpostos.Add(det.TotalImpostos)
		for _, aviso := range det.Avisos {
			resultado.Impostos.Avisos = append(resultado.Impostos.Avisos,
				fmt.Sprintf("item %d: %s", item.Sequencia, aviso))
		}

		// Bloco ausente no XML vale zero e não entra no confronto; o
		// comparativo só roda para os impostos que a nota declarou.
		comparacoes := []struct {
			campo     string
			presente  bool
			declarado decimal.Decimal
			calculado decimal.Decimal
		}{
			{"icms", item.CSTICMS != "", item.ICMSDeclarado, det.ICMS},
			{"icms_st", item.CSTICMS != "" && item.ICMSSTDeclarado.IsPositive(), item.ICMSSTDeclarado, det.ICMSST},
			{"ipi", item.IPIDeclarado.IsPositive(), item.IPIDeclarado, det.IPI},
			{"pis", item.CSTPIS != "", item.PISDeclarado, det.PIS},
			{"cofins", item.CSTCOFINS != "", item.COFINSDeclarado, det.COFINS},
		}
		for _, cmp := range comparacoes {
			if !cmp.presente {
				continue
			}
			if div, ok := confrontar(cmp.campo, item.Sequencia, cmp.declarado, cmp.calculado, config.Tolerancias); ok {
				resultado.Divergencias = append(resultado.Divergencias, div)
				divergentes[item.Sequencia] = true
			}
		}
	}

	for _, item := range resultado.Nota.Itens {
		if divergentes[item.Sequencia] {
			resultado.ItensComDivergencia = append(resultado.ItensComDivergencia, item.Sequencia)
		}
	}
}

// confrontar aplica a tolerância "maior entre absoluto e percentual" sobre a
// diferença declarado × calculado.
func confrontar(campo string, sequencia int, declarado, calculado decimal.Decimal, tol domain.Tolerancias) (domain.Divergencia, bool) {
	delta := declarado.Sub(calculado).Abs()
	tolerancia := decimal.Max(tol.ImpostoAbsoluto, declarado.Abs().Mul(tol.ImpostoPercentual))
	if delta.LessThanOrEqual(tolerancia) {
		return domain.Divergencia{}, false
	}

	percentual := decimal.Zero
	if !declarado.IsZero() {
		percentual = delta.Div(declarado.Abs()).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return domain.Divergencia{
		Tipo:            domain.DivergenciaImposto,
		Sequencia:       sequencia,
		Campo:           campo,
		Declarado:       declarado,
		Esperado:        calculado,
		DeltaAbsoluto:   delta.Round(2),
		DeltaPercentual: percentual,
	}, true
}

func (s *service) casarItens(ctx context.Context, resultado *domain.ResultadoConciliacao, config domain.ConfiguracaoFiscal) (*domain.PedidoCompra, error) {
	materiais, err := s.materiais.ListarMateriais(ctx, resultado.Empresa)
	if err != nil {
		return nil, err
	}
	matcher := NewMatcher(materiais)

	pedido, err := s.pedidos.BuscarPedidoAberto(ctx, resultado.Empresa, resultado.CNPJFornecedor)
	if errors.Is(err, domain.ErrNaoEncontrado) {
		pedido = nil
	} else if err != nil {
		return nil, err
	}
	if pedido != nil {
		resultado.NumeroPedido = pedido.Numero
	}

	for _, item := range resultado.Nota.Itens {
		correspondencia, sugestoes := matcher.Corresponder(item, config.Tolerancias.ConfiancaMinima)
		if correspondencia == nil {
			resultado.ItensSemMatch = append(resultado.ItensSemMatch, domain.ItemSemCorrespondencia{
				Sequencia: item.Sequencia,
				Codigo:    item.Codigo,
				Descricao: item.Descricao,
				Sugestoes: sugestoes,
			})
			continue
		}
		resultado.Correspondencias = append(resultado.Correspondencias, *correspondencia)

		if pedido != nil {
			s.confrontarPedido(resultado, item, correspondencia.CodigoMaterial, pedido, config.Tolerancias)
		}
	}
	return pedido, nil
}

// confrontarPedido compara quantidade e preço declarados com a linha do
// pedido que referencia o mesmo material.
func (s *service) confrontarPedido(resultado *domain.ResultadoConciliacao, item domain.ItemNota, codigoMaterial string, pedido *domain.PedidoCompra, tol domain.Tolerancias) {
	for _, linha := range pedido.Itens {
		if linha.CodigoMaterial != codigoMaterial {
			continue
		}

		if linha.Quantidade.IsPositive() {
			delta := item.Quantidade.Sub(linha.Quantidade).Abs()
			if delta.GreaterThan(linha.Quantidade.Mul(tol.Quantidade)) {
				resultado.Divergencias = append(resultado.Divergencias, domain.Divergencia{
					Tipo:            domain.DivergenciaQuantidade,
					Sequencia:       item.Sequencia,
					Campo:           "quantidade",
					Declarado:       item.Quantidade,
					Esperado:        linha.Quantidade,
					DeltaAbsoluto:   delta,
					DeltaPercentual: delta.Div(linha.Quantidade).Mul(decimal.NewFromInt(100)).Round(2),
				})
			}
		}

		if linha.ValorUnitario.IsPositive() {
			delta := item.ValorUnitario.Sub(linha.ValorUnitario).Abs()
			if delta.GreaterThan(linha.ValorUnitario.Mul(tol.Preco)) {
				resultado.Divergencias = append(resultado.Divergencias, domain.Divergencia{
					Tipo:            domain.DivergenciaPreco,
					Sequencia:       item.Sequencia,
					Campo:           "valor_unitario",
					Declarado:       item.ValorUnitario,
					Esperado:        linha.ValorUnitario,
					DeltaAbsoluto:   delta.Round(2),
					DeltaPercentual: delta.Div(linha.ValorUnitario).Mul(decimal.NewFromInt(100)).Round(2),
				})
			}
		}
		return
	}
}

// definirStatus aplica as regras de desfecho: rejeita quando há item sem
// correspondência e nenhum pedido de referência; aprova automaticamente só
// com tudo casado e sem divergência; o resto vai para revisão manual.
func (s *service) definirStatus(resultado *domain.ResultadoConciliacao, pedido *domain.PedidoCompra) {
	switch {
	case len(resultado.ItensSemMatch) > 0 && pedido == nil:
		resultado.Status = domain.StatusRejeitada
	case len(resultado.ItensSemMatch) == 0 && len(resultado.Divergencias) == 0:
		resultado.Status = domain.StatusAprovadaAutomaticamente
	default:
		resultado.Status = domain.StatusRevisaoManual
	}
}

// efetivar aplica os efeitos da aprovação: custo médio ponderado por material
// casado e emissão da conta a pagar.
func (s *service) efetivar(ctx context.Context, resultado *domain.ResultadoConciliacao) error {
	materiais, err := s.materiais.ListarMateriais(ctx, resultado.Empresa)
	if err != nil {
		return err
	}
	porCodigo := make(map[string]domain.Material, len(materiais))
	for _, m := range materiais {
		porCodigo[m.Codigo] = m
	}
	itensPorSequencia := make(map[int]domain.ItemNota, len(resultado.Nota.Itens))
	for _, item := range resultado.Nota.Itens {
		itensPorSequencia[item.Sequencia] = item
	}

	for _, c := range resultado.Correspondencias {
		material, ok := porCodigo[c.CodigoMaterial]
		if !ok {
			continue
		}
		item := itensPorSequencia[c.Sequencia]

		novaQuantidade := material.QuantidadeEstoque.Add(item.Quantidade)
		novoCusto := material.CustoMedio
		if novaQuantidade.IsPositive() {
			// Custo médio ponderado entre o estoque existente e o recebimento.
			novoCusto = material.QuantidadeEstoque.Mul(material.CustoMedio).
				Add(item.Quantidade.Mul(item.ValorUnitario)).
				Div(novaQuantidade).Round(4)
		}
		if err := s.materiais.AtualizarEstoque(ctx, resultado.Empresa, material.Codigo, novaQuantidade, novoCusto); err != nil {
			return err
		}
	}

	conta := domain.ContaPagar{
		Empresa:        resultado.Empresa,
		CNPJFornecedor: resultado.CNPJFornecedor,
		NumeroNota:     resultado.NumeroNota,
		ChaveAcesso:    resultado.ChaveAcesso,
		ValorTotal:     resultado.Nota.ValorTotal,
		Parcelas:       resultado.Nota.Duplicatas,
	}
	if len(conta.Parcelas) == 0 {
		// Nota sem duplicatas: parcela única com vencimento em 30 dias.
		conta.Parcelas = []domain.Duplicata{{
			Numero:     "001",
			Vencimento: resultado.Nota.DataEmissao.AddDate(0, 0, 30),
			Valor:      resultado.Nota.ValorTotal,
		}}
	}
	if err := s.financeiro.RegistrarContaPagar(ctx, conta); err != nil {
		return err
	}

	resultado.Efetivada = true
	return nil
}
