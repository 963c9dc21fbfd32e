// internal/api/handlers/fiscal_handler.go
package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/frmerp/fiscal-engine/internal/api/responses"
	"github.com/frmerp/fiscal-engine/internal/core/fiscal"
	"github.com/frmerp/fiscal-engine/internal/core/nfe"
	"github.com/frmerp/fiscal-engine/internal/core/reconciliation"
	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/gin-gonic/gin"
)

// ConfiguracaoStore é a visão de escrita da configuração fiscal, usada pelos
// endpoints de geração.
type ConfiguracaoStore interface {
	reconciliation.ConfiguracaoRepository
	SubstituirConfiguracao(ctx context.Context, config domain.ConfiguracaoFiscal) error
}

type FiscalHandler struct {
	parser        nfe.Service
	calculadora   fiscal.Calculadora
	analisador    fiscal.Analisador
	configuracoes ConfiguracaoStore
}

func NewFiscalHandler(parser nfe.Service, calculadora fiscal.Calculadora, analisador fiscal.Analisador, configuracoes ConfiguracaoStore) *FiscalHandler {
	return &FiscalHandler{
		parser:        parser,
		calculadora:   calculadora,
		analisador:    analisador,
		configuracoes: configuracoes,
	}
}

// HandleCalcularImpostos recalcula os impostos de uma nota com a configuração
// da empresa e devolve detalhamento por item e totais.
func (h *FiscalHandler) HandleCalcularImpostos(c *gin.Context) {
	empresa := c.Param("empresa")

	xmlFile, ok := abrirArquivo(c, "xmlFile")
	if !ok {
		return
	}
	defer xmlFile.Close()

	nota, err := h.parser.Parse(xmlFile)
	if err != nil {
		responderErroParse(c, err)
		return
	}

	config, err := h.buscarConfiguracao(c, empresa)
	if err != nil {
		return
	}

	var itens []domain.DetalhamentoImpostos
	for _, item := range nota.Itens {
		itens = append(itens, h.calculadora.CalcularImpostosItem(item, config))
	}
	totais := h.calculadora.CalcularTotaisNota(nota.Itens, config)

	responses.Success(c, gin.H{
		"chave_acesso": nota.ChaveAcesso,
		"itens":        itens,
		"totais":       totais,
	}, "Impostos calculados com sucesso")
}

// HandleAnalisarRegime infere o regime tributário a partir de um lote de XMLs
// históricos, sem persistir nada.
func (h *FiscalHandler) HandleAnalisarRegime(c *gin.Context) {
	notas, ok := h.parsearLote(c)
	if !ok {
		return
	}

	analise := h.analisador.AnalisarRegime(notas)
	responses.Success(c, analise, "Análise de regime concluída")
}

// HandleGerarConfiguracao deriva a configuração fiscal completa da empresa a
// partir do lote e a substitui no armazenamento.
func (h *FiscalHandler) HandleGerarConfiguracao(c *gin.Context) {
	empresa := c.Param("empresa")

	notas, ok := h.parsearLote(c)
	if !ok {
		return
	}

	config := h.analisador.GerarConfiguracao(empresa, notas)
	if err := h.configuracoes.SubstituirConfiguracao(c.Request.Context(), config); err != nil {
		responses.Error(c, http.StatusBadGateway, "Erro ao gravar a configuração", err.Error())
		return
	}

	responses.Success(c, config, "Configuração fiscal gerada e gravada")
}

// HandleBuscarConfiguracao devolve a configuração vigente da empresa.
func (h *FiscalHandler) HandleBuscarConfiguracao(c *gin.Context) {
	empresa := c.Param("empresa")

	config, err := h.configuracoes.BuscarConfiguracao(c.Request.Context(), empresa)
	if errors.Is(err, domain.ErrNaoEncontrado) {
		responses.Error(c, http.StatusNotFound, "Empresa sem configuração fiscal gerada")
		return
	}
	if err != nil {
		responses.Error(c, http.StatusBadGateway, "Erro ao buscar a configuração", err.Error())
		return
	}

	responses.Success(c, config, "")
}

// HandleClassificarCFOP expõe a tabela de classificação de CFOP.
func (h *FiscalHandler) HandleClassificarCFOP(c *gin.Context) {
	responses.Success(c, fiscal.ClassificarCFOP(c.Param("codigo")), "")
}

func (h *FiscalHandler) buscarConfiguracao(c *gin.Context, empresa string) (domain.ConfiguracaoFiscal, error) {
	config, err := h.configuracoes.BuscarConfiguracao(c.Request.Context(), empresa)
	if errors.Is(err, domain.ErrNaoEncontrado) {
		return domain.ConfiguracaoFiscal{
			Empresa:     empresa,
			Tolerancias: domain.ToleranciasPadrao(),
		}, nil
	}
	if err != nil {
		responses.Error(c, http.StatusBadGateway, "Erro ao buscar a configuração", err.Error())
		return domain.ConfiguracaoFiscal{}, err
	}
	return *config, nil
}

func (h *FiscalHandler) parsearLote(c *gin.Context) ([]domain.NotaFiscal, bool) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["xmlFiles"]) == 0 {
		responses.Error(c, http.StatusBadRequest, "Nenhum arquivo XML foi enviado")
		return nil, false
	}

	var notas []domain.NotaFiscal
	var falhas []string
	for _, header := range form.File["xmlFiles"] {
		nota, err := h.parsearArquivo(header)
		if err != nil {
			// Arquivo ilegível não derruba o lote; a análise segue com os
			// demais e as falhas voltam no corpo.
			falhas = append(falhas, header.Filename+": "+err.Error())
			continue
		}
		notas = append(notas, *nota)
	}

	if len(notas) == 0 {
		responses.Error(c, http.StatusUnprocessableEntity, "Nenhum XML pôde ser processado", falhas...)
		return nil, false
	}
	return notas, true
}

func (h *FiscalHandler) parsearArquivo(header *multipart.FileHeader) (*domain.NotaFiscal, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return h.parser.Parse(file)
}

func abrirArquivo(c *gin.Context, campo string) (multipart.File, bool) {
	header, err := c.FormFile(campo)
	if err != nil {
		responses.Error(c, http.StatusBadRequest, "Arquivo XML não encontrado ou inválido")
		return nil, false
	}
	file, err := header.Open()
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, "Não foi possível abrir o arquivo XML")
		return nil, false
	}
	return file, true
}

func responderErroParse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrVersaoNaoSuportada):
		responses.Error(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrDocumentoMalformado):
		responses.Error(c, http.StatusBadRequest, err.Error())
	default:
		responses.Error(c, http.StatusInternalServerError, err.Error())
	}
}
