package bookmeta

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/klausbr/readium-api/internal/metadata"
)

// epubContainer mirrors META-INF/container.xml, which points at the OPF
// package document.
type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// epubPackage mirrors the parts of the OPF package document the extractor
// reads: creators, the cover meta/manifest entries and the spine.
type epubPackage struct {
	Metadata struct {
		Creators []string `xml:"creator"`
		Metas    []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Items []epubManifestItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Itemrefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type epubManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// extractEPUB derives author, a page count approximation and the cover
// image from an EPUB container. EPUBs have no fixed pagination, so the
// spine item count stands in for pages.
func (e *DocumentExtractor) extractEPUB(ctx context.Context, localPath string) (*metadata.Info, error) {
	archive, err := zip.OpenReader(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open EPUB container: %w", err)
	}
	defer func() { _ = archive.Close() }()

	opfPath, err := epubRootfile(&archive.Reader)
	if err != nil {
		return nil, err
	}

	var pkg epubPackage
	if err := readZipXML(&archive.Reader, opfPath, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse package document: %w", err)
	}

	info := &metadata.Info{
		Author: strings.TrimSpace(strings.Join(nonEmpty(pkg.Metadata.Creators), ", ")),
		Pages:  len(pkg.Spine.Itemrefs),
	}

	coverHref := coverManifestHref(&pkg)
	if coverHref == "" {
		return info, nil
	}

	// Manifest hrefs are relative to the OPF document.
	coverFile := path.Join(path.Dir(opfPath), coverHref)
	data, err := readZipFile(&archive.Reader, coverFile)
	if err != nil {
		e.logger.Warn("could not read EPUB cover", slog.String("error", err.Error()))
		return info, nil
	}

	storedPath, err := e.blobs.SaveDerived(ctx, data, path.Ext(coverFile))
	if err != nil {
		e.logger.Warn("could not store EPUB cover", slog.String("error", err.Error()))
		return info, nil
	}

	info.CoverPath = storedPath
	info.HasCover = true
	return info, nil
}

// epubRootfile resolves the OPF path from the container descriptor.
func epubRootfile(archive *zip.Reader) (string, error) {
	var container epubContainer
	if err := readZipXML(archive, "META-INF/container.xml", &container); err != nil {
		return "", fmt.Errorf("failed to parse container descriptor: %w", err)
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return "", fmt.Errorf("container descriptor names no rootfile")
	}
	return container.Rootfiles[0].FullPath, nil
}

// coverManifestHref finds the cover image in the manifest, preferring the
// EPUB 3 cover-image property and falling back to the EPUB 2 meta
// name="cover" convention.
func coverManifestHref(pkg *epubPackage) string {
	for _, item := range pkg.Manifest.Items {
		if strings.Contains(item.Properties, "cover-image") {
			return item.Href
		}
	}

	var coverID string
	for _, meta := range pkg.Metadata.Metas {
		if meta.Name == "cover" {
			coverID = meta.Content
			break
		}
	}
	if coverID == "" {
		return ""
	}
	for _, item := range pkg.Manifest.Items {
		if item.ID == coverID && strings.HasPrefix(item.MediaType, "image/") {
			return item.Href
		}
	}
	return ""
}

func readZipXML(archive *zip.Reader, name string, v any) error {
	data, err := readZipFile(archive, name)
	if err != nil {
		return err
	}
	return xml.Unmarshal(data, v)
}

func readZipFile(archive *zip.Reader, name string) ([]byte, error) {
	f, err := archive.Open(name)
	if err != nil {
		return nil, fmt.Errorf("missing archive entry %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}
