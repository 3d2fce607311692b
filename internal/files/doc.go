// Package files discovers pipeline input tables in the data directory.
//
// Commands accept explicit paths for every input. When one is omitted,
// Discovery.Discover looks for a CSV or Excel file whose name fits the
// role (returns, panel, metadata, exceptions, annual returns) and picks the
// most recently modified candidate.
package files
