package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/zombor/invoice-ocr/internal/invoice"
)

type section struct {
	title string
	rows  [][2]string
}

// render prints a recognized invoice grouped the way the paper form is
func render(w io.Writer, r *invoice.InvoiceResult) {
	sections := []section{
		{"基本信息", [][2]string{
			{"发票类型", r.InvoiceType},
			{"发票标题", r.Title},
			{"发票代码", r.InvoiceCode},
			{"发票号码", r.InvoiceNumber},
			{"校验码", r.CheckCode},
			{"开票日期", r.InvoiceDate},
		}},
		{"金额信息", [][2]string{
			{"总金额", invoice.FormatAmount(r.TotalAmount)},
			{"不含税金额", invoice.FormatAmount(r.AmountWithoutTax)},
			{"税额", invoice.FormatAmount(r.TaxAmount)},
			{"大写金额", r.AmountInWords},
		}},
		{"销售方信息", [][2]string{
			{"名称", r.SellerName},
			{"税号", r.SellerTaxID},
		}},
		{"购买方信息", [][2]string{
			{"名称", r.PurchaserName},
			{"税号", r.PurchaserTaxID},
		}},
	}

	fmt.Fprintln(w, "✅ 识别成功")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range sections {
		fmt.Fprintf(tw, "\n%s\n", s.title)
		for _, row := range s.rows {
			fmt.Fprintf(tw, "  %s:\t%s\n", row[0], row[1])
		}
	}

	if len(r.Items) > 0 {
		fmt.Fprintf(tw, "\n商品明细\n")
		fmt.Fprintln(tw, "  商品名称\t规格\t数量\t单价\t金额\t税率")
		for _, item := range r.Items {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n",
				item.Name,
				item.Spec,
				item.Quantity,
				invoice.FormatAmount(item.UnitPrice),
				invoice.FormatAmount(item.Amount),
				item.TaxRate,
			)
		}
	}

	if r.SpecialMark != "" || r.Remark != "" {
		fmt.Fprintf(tw, "\n其他信息\n")
		fmt.Fprintf(tw, "  特殊标记:\t%s\n", r.SpecialMark)
		fmt.Fprintf(tw, "  备注:\t%s\n", r.Remark)
	}
	tw.Flush()
}
