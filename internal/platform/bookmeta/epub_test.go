package bookmeta_test

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klausbr/readium-api/internal/domain"
	"github.com/klausbr/readium-api/internal/platform/bookmeta"
	"github.com/klausbr/readium-api/internal/platform/filestore"
)

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

func buildEPUB(t *testing.T, opf string, extras map[string][]byte) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)

	entries := map[string][]byte{
		"mimetype":               []byte("application/epub+zip"),
		"META-INF/container.xml": []byte(containerXML),
		"OEBPS/content.opf":      []byte(opf),
	}
	for name, data := range extras {
		entries[name] = data
	}
	for name, data := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func storedEPUB(t *testing.T, root string, archive []byte) (*bookmeta.DocumentExtractor, *domain.Book) {
	t.Helper()

	blobs, err := filestore.New(root, nil)
	require.NoError(t, err)

	stored, err := blobs.SaveWithDigest(context.Background(), bytes.NewReader(archive), "sample.epub")
	require.NoError(t, err)

	book, err := domain.NewBook("Sample", stored.Path, stored.Digest, domain.BookFormatEPUB)
	require.NoError(t, err)

	return bookmeta.NewDocumentExtractor(blobs, nil), book
}

func TestExtractEPUB(t *testing.T) {
	t.Parallel()

	t.Run("reads creators and spine length", func(t *testing.T) {
		t.Parallel()

		opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="3.0">
  <metadata>
    <dc:creator>Jules Verne</dc:creator>
    <dc:creator> </dc:creator>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

		extractor, book := storedEPUB(t, t.TempDir(), buildEPUB(t, opf, nil))

		info, err := extractor.Extract(context.Background(), book)
		require.NoError(t, err)

		assert.Equal(t, "Jules Verne", info.Author)
		assert.Equal(t, 2, info.Pages)
		assert.False(t, info.HasCover)
	})

	t.Run("stores the cover named by the cover-image property", func(t *testing.T) {
		t.Parallel()

		opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata/>
  <manifest>
    <item id="cover" href="images/cover.png" media-type="image/png" properties="cover-image"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
  </spine>
</package>`
		coverBytes := []byte("png bytes")
		root := t.TempDir()
		archive := buildEPUB(t, opf, map[string][]byte{"OEBPS/images/cover.png": coverBytes})
		extractor, book := storedEPUB(t, root, archive)

		info, err := extractor.Extract(context.Background(), book)
		require.NoError(t, err)

		assert.True(t, info.HasCover)
		require.NotEmpty(t, info.CoverPath)
		stored, err := os.ReadFile(info.CoverPath)
		require.NoError(t, err)
		assert.Equal(t, coverBytes, stored)
	})

	t.Run("falls back to the meta cover convention", func(t *testing.T) {
		t.Parallel()

		opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="cover-img" href="cover.jpg" media-type="image/jpeg"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
  </spine>
</package>`
		archive := buildEPUB(t, opf, map[string][]byte{"OEBPS/cover.jpg": []byte("jpg bytes")})
		extractor, book := storedEPUB(t, t.TempDir(), archive)

		info, err := extractor.Extract(context.Background(), book)
		require.NoError(t, err)

		assert.True(t, info.HasCover)
		assert.True(t, strings.HasSuffix(info.CoverPath, ".jpg"), "cover keeps its extension, got %s", info.CoverPath)
	})

	t.Run("missing cover entry is tolerated", func(t *testing.T) {
		t.Parallel()

		opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata/>
  <manifest>
    <item id="cover" href="images/gone.png" media-type="image/png" properties="cover-image"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
  </spine>
</package>`
		extractor, book := storedEPUB(t, t.TempDir(), buildEPUB(t, opf, nil))

		info, err := extractor.Extract(context.Background(), book)
		require.NoError(t, err)

		assert.False(t, info.HasCover)
		assert.Equal(t, 1, info.Pages)
	})

	t.Run("broken container descriptor fails", func(t *testing.T) {
		t.Parallel()

		buf := &bytes.Buffer{}
		w := zip.NewWriter(buf)
		f, err := w.Create("mimetype")
		require.NoError(t, err)
		_, err = f.Write([]byte("application/epub+zip"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		extractor, book := storedEPUB(t, t.TempDir(), buf.Bytes())

		_, err = extractor.Extract(context.Background(), book)
		require.Error(t, err)
	})
}
