// internal/api/handlers/reconciliation_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/frmerp/fiscal-engine/internal/api/responses"
	"github.com/frmerp/fiscal-engine/internal/core/reconciliation"
	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/gin-gonic/gin"
)

type ReconciliationHandler struct {
	service reconciliation.Service
}

func NewReconciliationHandler(service reconciliation.Service) *ReconciliationHandler {
	return &ReconciliationHandler{service: service}
}

// HandleConciliar recebe o XML da nota de entrada e roda o pipeline completo.
// O desfecho (aprovada, revisão, rejeitada) volta no corpo; só falha de parse
// ou de colaborador vira erro HTTP.
func (h *ReconciliationHandler) HandleConciliar(c *gin.Context) {
	empresa := c.Param("empresa")

	xmlFile, ok := abrirArquivo(c, "xmlFile")
	if !ok {
		return
	}
	defer xmlFile.Close()

	resultado, err := h.service.Conciliar(c.Request.Context(), empresa, xmlFile)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDocumentoMalformado), errors.Is(err, domain.ErrVersaoNaoSuportada):
			responderErroParse(c, err)
		case errors.Is(err, domain.ErrFalhaColaborador):
			responses.Error(c, http.StatusBadGateway, "Falha ao acessar serviço colaborador", err.Error())
		default:
			responses.Error(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	responses.Success(c, resultado, "Conciliação executada")
}

// HandleAprovarManual efetiva um resultado que ficou aguardando revisão.
func (h *ReconciliationHandler) HandleAprovarManual(c *gin.Context) {
	empresa := c.Param("empresa")
	resultadoID := c.Param("id")

	resultado, err := h.service.AprovarManual(c.Request.Context(), empresa, resultadoID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNaoEncontrado):
			responses.Error(c, http.StatusNotFound, "Resultado de conciliação não encontrado")
		case errors.Is(err, reconciliation.ErrResultadoNaoPendente):
			responses.Error(c, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrFalhaColaborador):
			responses.Error(c, http.StatusBadGateway, "Falha ao acessar serviço colaborador", err.Error())
		default:
			responses.Error(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	responses.Success(c, resultado, "Conciliação aprovada manualmente")
}
