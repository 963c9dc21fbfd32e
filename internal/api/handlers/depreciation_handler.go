// internal/api/handlers/depreciation_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/frmerp/fiscal-engine/internal/api/responses"
	"github.com/frmerp/fiscal-engine/internal/core/depreciation"
	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type DepreciationHandler struct {
	service depreciation.Service
}

func NewDepreciationHandler(service depreciation.Service) *DepreciationHandler {
	return &DepreciationHandler{service: service}
}

type CronogramaRequest struct {
	Metodo        domain.MetodoDepreciacao `json:"metodo" binding:"required"`
	Custo         decimal.Decimal          `json:"custo" binding:"required"`
	ValorResidual decimal.Decimal          `json:"valor_residual"`
	VidaUtil      int                      `json:"vida_util" binding:"required"`
	Fator         decimal.Decimal          `json:"fator"` // só para saldo decrescente
}

// HandleCronograma gera o cronograma de depreciação pelo método pedido.
func (h *DepreciationHandler) HandleCronograma(c *gin.Context) {
	var req CronogramaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, http.StatusBadRequest, "Requisição inválida", err.Error())
		return
	}

	var cronograma *domain.CronogramaDepreciacao
	var err error
	switch req.Metodo {
	case domain.MetodoLinear:
		cronograma, err = h.service.CalcularLinear(req.Custo, req.ValorResidual, req.VidaUtil)
	case domain.MetodoSaldoDecrescente:
		cronograma, err = h.service.CalcularSaldoDecrescente(req.Custo, req.ValorResidual, req.VidaUtil, req.Fator)
	case domain.MetodoSomaDigitos:
		cronograma, err = h.service.CalcularSomaDigitos(req.Custo, req.ValorResidual, req.VidaUtil)
	default:
		responses.Error(c, http.StatusBadRequest, "Método de depreciação desconhecido: "+string(req.Metodo))
		return
	}

	if err != nil {
		if errors.Is(err, domain.ErrVidaUtilInvalida) || errors.Is(err, domain.ErrCustoInvalido) {
			responses.Error(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		responses.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	responses.Success(c, cronograma, "Cronograma gerado")
}

type BaixaRequest struct {
	ValorContabil decimal.Decimal `json:"valor_contabil" binding:"required"`
	ValorVenda    decimal.Decimal `json:"valor_venda"`
}

// HandleBaixa calcula o ganho ou perda na alienação de um ativo.
func (h *DepreciationHandler) HandleBaixa(c *gin.Context) {
	var req BaixaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, http.StatusBadRequest, "Requisição inválida", err.Error())
		return
	}

	responses.Success(c, h.service.CalcularResultadoBaixa(req.ValorContabil, req.ValorVenda), "")
}
