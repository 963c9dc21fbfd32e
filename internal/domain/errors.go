// internal/domain/errors.go
package domain

import "errors"

// Erros sentinela do motor fiscal. Os chamadores testam com errors.Is; o
// detalhe de cada ocorrência vem embrulhado com fmt.Errorf("%w: ...").
var (
	// ErrDocumentoMalformado: o XML não tem os elementos obrigatórios
	// (emitente, itens, totais). Irrecuperável para o documento.
	ErrDocumentoMalformado = errors.New("documento NF-e malformado")

	// ErrVersaoNaoSuportada: a versão do leiaute está fora do conjunto aceito.
	ErrVersaoNaoSuportada = errors.New("versão de leiaute NF-e não suportada")

	// ErrVidaUtilInvalida: vida útil menor ou igual a zero.
	ErrVidaUtilInvalida = errors.New("vida útil inválida")

	// ErrCustoInvalido: valor residual maior que o custo de aquisição.
	ErrCustoInvalido = errors.New("custo inválido")

	// ErrFalhaColaborador: qualquer falha de leitura/gravação no colaborador
	// de persistência; aborta a execução corrente sem efeitos parciais.
	ErrFalhaColaborador = errors.New("falha no colaborador de persistência")

	// ErrNaoEncontrado: registro inexistente na consulta ao colaborador.
	ErrNaoEncontrado = errors.New("registro não encontrado")
)
