// internal/core/nfe/parser.go
package nfe

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/frmerp/fiscal-engine/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// Versões de leiaute aceitas pelo parser.
var versoesSuportadas = map[string]bool{
	"3.10": true,
	"4.00": true,
}

// Service faz o parse de XMLs de NF-e para a representação interna.
// Função pura: não toca banco nem rede.
type Service interface {
	Parse(xmlFile io.Reader) (*domain.NotaFiscal, error)
}

type service struct{}

func NewService() Service {
	return &service{}
}

func (s *service) Parse(xmlFile io.Reader) (*domain.NotaFiscal, error) {
	xmlData, err := io.ReadAll(xmlFile)
	if err != nil {
		return nil, fmt.Errorf("%w: erro ao ler dados do XML: %v", domain.ErrDocumentoMalformado, err)
	}

	// XMLs legados chegam em ISO-8859-1; o encoding/xml só entende UTF-8.
	// A declaração pode vir em qualquer caixa, então a posição achada na
	// cópia em maiúsculas vale para reescrever o original (o prólogo é ASCII
	// e o decoder não altera o comprimento dessa região).
	head := bytes.ToUpper(xmlData[:min(len(xmlData), 200)])
	if idx := bytes.Index(head, []byte("ISO-8859-1")); idx >= 0 {
		decoded, derr := charmap.ISO8859_1.NewDecoder().Bytes(xmlData)
		if derr == nil {
			xmlData = append(decoded[:idx:idx],
				append([]byte("UTF-8"), decoded[idx+len("ISO-8859-1"):]...)...)
		}
	}

	infNFe, chaveProtocolo, err := s.desembrulhar(xmlData)
	if err != nil {
		return nil, err
	}

	if !versoesSuportadas[infNFe.Versao] {
		return nil, fmt.Errorf("%w: versão %q (aceitas: 3.10, 4.00)", domain.ErrVersaoNaoSuportada, infNFe.Versao)
	}
	if infNFe.Emit.CNPJ == "" {
		return nil, fmt.Errorf("%w: emitente sem CNPJ", domain.ErrDocumentoMalformado)
	}
	if len(infNFe.Det) == 0 {
		return nil, fmt.Errorf("%w: nota sem itens", domain.ErrDocumentoMalformado)
	}
	if infNFe.Total.ICMSTot.VNF == "" {
		return nil, fmt.Errorf("%w: bloco de totais ausente", domain.ErrDocumentoMalformado)
	}

	chave := chaveProtocolo
	if chave == "" {
		chave = extrairChaveDoID(infNFe.ID)
	}

	nota := &domain.NotaFiscal{
		ChaveAcesso:      chave,
		Numero:           infNFe.Ide.NNF,
		Serie:            infNFe.Ide.Serie,
		Versao:           infNFe.Versao,
		NaturezaOperacao: infNFe.Ide.NatOp,
		DataEmissao:      parseDataEmissao(infNFe.Ide.DhEmi, infNFe.Ide.DEmi),
		CNPJEmitente:     infNFe.Emit.CNPJ,
		NomeEmitente:     infNFe.Emit.XNome,
		UFOrigem:         infNFe.Emit.Ender.UF,
		CNPJDestinatario: infNFe.Dest.CNPJ,
		NomeDestinatario: infNFe.Dest.XNome,
		UFDestino:        infNFe.Dest.Ender.UF,
		ValorTotal:       parseDec(infNFe.Total.ICMSTot.VNF),
	}

	for i, det := range infNFe.Det {
		item := converterItem(i+1, det)
		item.UFOrigem = nota.UFOrigem
		item.UFDestino = nota.UFDestino
		nota.Itens = append(nota.Itens, item)
	}

	for _, dup := range infNFe.Cobr.Dup {
		venc, derr := time.Parse("2006-01-02", dup.DVenc)
		if derr != nil {
			continue
		}
		nota.Duplicatas = append(nota.Duplicatas, domain.Duplicata{
			Numero:     dup.NDup,
			Vencimento: venc,
			Valor:      parseDec(dup.VDup),
		})
	}

	return nota, nil
}

// desembrulhar tenta primeiro o envelope completo (nfeProc, com protocolo) e
// cai para a NFe pura quando o XML não traz protocolo.
func (s *service) desembrulhar(xmlData []byte) (*domain.InfNFe, string, error) {
	var proc domain.NFeProc
	if err := xml.Unmarshal(xmlData, &proc); err == nil && proc.NFe.InfNFe.ID != "" {
		return &proc.NFe.InfNFe, proc.ProtNFe.InfProt.ChNFe, nil
	}

	var nfe domain.NFeXML
	if err := xml.Unmarshal(xmlData, &nfe); err != nil {
		return nil, "", fmt.Errorf("%w: falha ao fazer parse do XML: %v", domain.ErrDocumentoMalformado, err)
	}
	if nfe.InfNFe.ID == "" {
		return nil, "", fmt.Errorf("%w: infNFe.Id não encontrado", domain.ErrDocumentoMalformado)
	}
	return &nfe.InfNFe, "", nil
}

func converterItem(sequencia int, det domain.DetXML) domain.ItemNota {
	item := domain.ItemNota{
		Sequencia:     sequencia,
		Codigo:        strings.TrimSpace(det.Prod.CProd),
		EAN:           det.Prod.CEAN,
		Descricao:     strings.TrimSpace(det.Prod.XProd),
		NCM:           det.Prod.NCM,
		CFOP:          det.Prod.CFOP,
		Unidade:       det.Prod.UCom,
		Quantidade:    parseDec(det.Prod.QCom),
		ValorUnitario: parseDec(det.Prod.VUnCom),
		ValorTotal:    parseDec(det.Prod.VProd),
	}

	// Blocos de imposto ausentes valem zero, nunca erro.
	if bloco, cst := det.Imposto.ICMS.Bloco(); bloco != nil {
		item.CSTICMS = cst
		item.AliquotaICMS = parseDec(bloco.PICMS)
		item.ICMSDeclarado = parseDec(bloco.VICMS)
		item.ICMSSTDeclarado = parseDec(bloco.VICMSST)
		if bloco.PMVAST != "" {
			item.MVADeclarado = parseDec(bloco.PMVAST).Div(decimal.NewFromInt(100))
		}
		if bloco.VCredICMSSN != "" {
			item.ICMSDeclarado = parseDec(bloco.VCredICMSSN)
		}
	}

	if det.Imposto.IPI.IPITrib != nil {
		item.IPIDeclarado = parseDec(det.Imposto.IPI.IPITrib.VIPI)
	}

	switch {
	case det.Imposto.PIS.PISAliq != nil:
		item.CSTPIS = det.Imposto.PIS.PISAliq.CST
		item.PISDeclarado = parseDec(det.Imposto.PIS.PISAliq.VPIS)
	case det.Imposto.PIS.PISOutr != nil:
		item.CSTPIS = det.Imposto.PIS.PISOutr.CST
		item.PISDeclarado = parseDec(det.Imposto.PIS.PISOutr.VPIS)
	case det.Imposto.PIS.PISNT != nil:
		item.CSTPIS = det.Imposto.PIS.PISNT.CST
	}

	switch {
	case det.Imposto.COFINS.COFINSAliq != nil:
		item.CSTCOFINS = det.Imposto.COFINS.COFINSAliq.CST
		item.COFINSDeclarado = parseDec(det.Imposto.COFINS.COFINSAliq.VCOFINS)
	case det.Imposto.COFINS.COFINSOutr != nil:
		item.CSTCOFINS = det.Imposto.COFINS.COFINSOutr.CST
		item.COFINSDeclarado = parseDec(det.Imposto.COFINS.COFINSOutr.VCOFINS)
	case det.Imposto.COFINS.COFINSNT != nil:
		item.CSTCOFINS = det.Imposto.COFINS.COFINSNT.CST
	}

	return item
}

// extrairChaveDoID tira os 44 dígitos da chave de acesso do atributo Id
// (formato "NFe" + 44 dígitos).
func extrairChaveDoID(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "NFe") && len(id) == 47 {
		return id[3:]
	}
	if len(id) == 44 {
		return id
	}
	return ""
}

func parseDataEmissao(dhEmi, dEmi string) time.Time {
	if dhEmi != "" {
		if t, err := time.Parse(time.RFC3339, dhEmi); err == nil {
			return t
		}
	}
	if dEmi != "" {
		if t, err := time.Parse("2006-01-02", dEmi); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseDec tolera campos vazios ou ilegíveis devolvendo zero; o leiaute da
// NF-e usa ponto como separador decimal.
func parseDec(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
