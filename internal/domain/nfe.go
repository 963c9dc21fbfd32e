// internal/domain/nfe.go
package domain

import "encoding/xml"

// Estruturas que espelham o leiaute XML da NF-e (suporta 3.10 e 4.00).
// Apenas os campos consumidos pelo motor fiscal são mapeados; o restante do
// documento é ignorado pelo encoding/xml.

type NFeProc struct {
	XMLName xml.Name `xml:"nfeProc"`
	Versao  string   `xml:"versao,attr"`
	NFe     NFeXML   `xml:"NFe"`
	ProtNFe struct {
		InfProt struct {
			ChNFe string `xml:"chNFe"`
		} `xml:"infProt"`
	} `xml:"protNFe"`
}

type NFeXML struct {
	XMLName xml.Name `xml:"NFe"`
	InfNFe  InfNFe   `xml:"infNFe"`
}

type InfNFe struct {
	ID     string `xml:"Id,attr"`
	Versao string `xml:"versao,attr"`
	Ide    struct {
		NNF   string `xml:"nNF"`
		Serie string `xml:"serie"`
		NatOp string `xml:"natOp"`
		DhEmi string `xml:"dhEmi"`
		DEmi  string `xml:"dEmi"` // leiaute 3.10 usa dEmi (só data)
	} `xml:"ide"`
	Emit struct {
		CNPJ  string `xml:"CNPJ"`
		XNome string `xml:"xNome"`
		Ender struct {
			UF string `xml:"UF"`
		} `xml:"enderEmit"`
	} `xml:"emit"`
	Dest struct {
		CNPJ  string `xml:"CNPJ"`
		XNome string `xml:"xNome"`
		Ender struct {
			UF string `xml:"UF"`
		} `xml:"enderDest"`
	} `xml:"dest"`
	Det   []DetXML `xml:"det"`
	Total struct {
		ICMSTot struct {
			VBC     string `xml:"vBC"`
			VICMS   string `xml:"vICMS"`
			VST     string `xml:"vST"`
			VProd   string `xml:"vProd"`
			VIPI    string `xml:"vIPI"`
			VPIS    string `xml:"vPIS"`
			VCOFINS string `xml:"vCOFINS"`
			VNF     string `xml:"vNF"`
		} `xml:"ICMSTot"`
	} `xml:"total"`
	Cobr struct {
		Dup []DupXML `xml:"dup"`
	} `xml:"cobr"`
}

type DupXML struct {
	NDup  string `xml:"nDup"`
	DVenc string `xml:"dVenc"`
	VDup  string `xml:"vDup"`
}

type DetXML struct {
	NItem string `xml:"nItem,attr"`
	Prod  struct {
		CProd  string `xml:"cProd"`
		CEAN   string `xml:"cEAN"`
		XProd  string `xml:"xProd"`
		NCM    string `xml:"NCM"`
		CFOP   string `xml:"CFOP"`
		UCom   string `xml:"uCom"`
		QCom   string `xml:"qCom"`
		VUnCom string `xml:"vUnCom"`
		VProd  string `xml:"vProd"`
	} `xml:"prod"`
	Imposto struct {
		ICMS   ICMSXML   `xml:"ICMS"`
		IPI    IPIXML    `xml:"IPI"`
		PIS    PISXML    `xml:"PIS"`
		COFINS COFINSXML `xml:"COFINS"`
	} `xml:"imposto"`
}

// ICMSXML agrupa as variantes de CST/CSOSN. Cada nota usa exatamente um bloco;
// os demais ficam nil.
type ICMSXML struct {
	ICMS00    *ICMSBloco `xml:"ICMS00"`
	ICMS10    *ICMSBloco `xml:"ICMS10"`
	ICMS20    *ICMSBloco `xml:"ICMS20"`
	ICMS30    *ICMSBloco `xml:"ICMS30"`
	ICMS40    *ICMSBloco `xml:"ICMS40"`
	ICMS51    *ICMSBloco `xml:"ICMS51"`
	ICMS60    *ICMSBloco `xml:"ICMS60"`
	ICMS70    *ICMSBloco `xml:"ICMS70"`
	ICMS90    *ICMSBloco `xml:"ICMS90"`
	ICMSSN101 *ICMSBloco `xml:"ICMSSN101"`
	ICMSSN102 *ICMSBloco `xml:"ICMSSN102"`
	ICMSSN500 *ICMSBloco `xml:"ICMSSN500"`
	ICMSSN900 *ICMSBloco `xml:"ICMSSN900"`
}

// Blocos retorna a variante preenchida e o CST/CSOSN efetivo dela.
func (i ICMSXML) Bloco() (*ICMSBloco, string) {
	variantes := []*ICMSBloco{
		i.ICMS00, i.ICMS10, i.ICMS20, i.ICMS30, i.ICMS40, i.ICMS51,
		i.ICMS60, i.ICMS70, i.ICMS90,
		i.ICMSSN101, i.ICMSSN102, i.ICMSSN500, i.ICMSSN900,
	}
	for _, b := range variantes {
		if b == nil {
			continue
		}
		cst := b.CST
		if cst == "" {
			cst = b.CSOSN
		}
		return b, cst
	}
	return nil, ""
}

// ICMSBloco cobre os campos de todas as variantes; campos ausentes no XML
// ficam vazios.
type ICMSBloco struct {
	Orig          string `xml:"orig"`
	CST           string `xml:"CST"`
	CSOSN         string `xml:"CSOSN"`
	VBC           string `xml:"vBC"`
	PICMS         string `xml:"pICMS"`
	VICMS         string `xml:"vICMS"`
	VBCST         string `xml:"vBCST"`
	PMVAST        string `xml:"pMVAST"`
	PICMSST       string `xml:"pICMSST"`
	VICMSST       string `xml:"vICMSST"`
	VCredICMSSN   string `xml:"vCredICMSSN"`
	PCredSN       string `xml:"pCredSN"`
	VICMSSTRetido string `xml:"vICMSSTRet"`
}

type IPIXML struct {
	IPITrib *struct {
		CST  string `xml:"CST"`
		VBC  string `xml:"vBC"`
		PIPI string `xml:"pIPI"`
		VIPI string `xml:"vIPI"`
	} `xml:"IPITrib"`
	IPINT *struct {
		CST string `xml:"CST"`
	} `xml:"IPINT"`
}

type PISXML struct {
	PISAliq *struct {
		CST  string `xml:"CST"`
		VBC  string `xml:"vBC"`
		PPIS string `xml:"pPIS"`
		VPIS string `xml:"vPIS"`
	} `xml:"PISAliq"`
	PISNT *struct {
		CST string `xml:"CST"`
	} `xml:"PISNT"`
	PISOutr *struct {
		CST  string `xml:"CST"`
		PPIS string `xml:"pPIS"`
		VPIS string `xml:"vPIS"`
	} `xml:"PISOutr"`
}

type COFINSXML struct {
	COFINSAliq *struct {
		CST     string `xml:"CST"`
		VBC     string `xml:"vBC"`
		PCOFINS string `xml:"pCOFINS"`
		VCOFINS string `xml:"vCOFINS"`
	} `xml:"COFINSAliq"`
	COFINSNT *struct {
		CST string `xml:"CST"`
	} `xml:"COFINSNT"`
	COFINSOutr *struct {
		CST     string `xml:"CST"`
		PCOFINS string `xml:"pCOFINS"`
		VCOFINS string `xml:"vCOFINS"`
	} `xml:"COFINSOutr"`
}
