package census

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bdc-cli/internal/fetcher"
)

// TabblockURL returns the HTTPS URL of a state's tabblock20 archive for a
// given TIGER/Line year.
func TabblockURL(year int, fips string) string {
	return fmt.Sprintf("https://www2.census.gov/geo/tiger/TIGER%d/TABBLOCK20/tl_%d_%s_tabblock20.zip", year, year, fips)
}

// TabblockFTPURL returns the Census FTP mirror URL for the same archive.
func TabblockFTPURL(year int, fips string) string {
	return fmt.Sprintf("ftp://ftp2.census.gov/geo/tiger/TIGER%d/TABBLOCK20/tl_%d_%s_tabblock20.zip", year, year, fips)
}

// FetchTabblock downloads and extracts a state's tabblock20 archive and
// returns the path to the .shp file. An existing non-empty archive is
// reused. When the HTTPS download fails and an FTP fetcher is supplied,
// the Census FTP mirror is tried before giving up.
func FetchTabblock(ctx context.Context, httpF, ftpF fetcher.Fetcher, year int, fips, destDir string) (string, error) {
	log := zap.L().With(
		zap.String("component", "census.download"),
		zap.String("fips", fips),
		zap.Int("year", year),
	)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "census: create dest dir")
	}

	url := TabblockURL(year, fips)
	zipName := url[strings.LastIndex(url, "/")+1:]
	zipPath := filepath.Join(destDir, zipName)

	if info, err := os.Stat(zipPath); err == nil && info.Size() > 0 {
		log.Debug("tabblock archive already present", zap.String("path", zipPath))
	} else {
		log.Info("downloading tabblock archive", zap.String("url", url))
		if _, err := httpF.DownloadToFile(ctx, url, zipPath); err != nil {
			if ftpF == nil {
				return "", eris.Wrap(err, "census: download tabblock")
			}
			ftpURL := TabblockFTPURL(year, fips)
			log.Warn("https download failed, trying ftp mirror",
				zap.String("ftp_url", ftpURL), zap.Error(err))
			if _, ftpErr := ftpF.DownloadToFile(ctx, ftpURL, zipPath); ftpErr != nil {
				return "", eris.Wrap(ftpErr, "census: download tabblock via ftp")
			}
		}
	}

	extractDir := filepath.Join(destDir, strings.TrimSuffix(zipName, ".zip"))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrap(err, "census: create extract dir")
	}
	if _, err := fetcher.ExtractZIP(zipPath, extractDir); err != nil {
		return "", eris.Wrap(err, "census: extract tabblock archive")
	}

	shpPath, err := fetcher.FindByExt(extractDir, ".shp")
	if err != nil {
		return "", eris.Wrap(err, "census: find .shp file")
	}

	return shpPath, nil
}
