// Package dataprocessing reads the tabular inputs of the pipeline.
//
// Return panels, entity metadata, ticker exception maps and balance-sheet
// panels all arrive as delimited text or Excel workbooks with loosely
// formatted headers. ReadTable turns either format into a Table with
// normalized column names ("Total Return" becomes "total_return"), and the
// value helpers parse the numeric and date cells those files contain.
//
// # Usage
//
//	tbl, err := dataprocessing.ReadTable("data/returns.xlsx", "instrument", "date", "total_return")
//	if err != nil {
//	    return err
//	}
//	for _, row := range tbl.Rows {
//	    ret, ok := dataprocessing.ParseFloat(tbl.Value(row, "total_return"))
//	    ...
//	}
package dataprocessing
