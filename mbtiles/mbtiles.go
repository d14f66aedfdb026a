/*
Package mbtiles reads and writes packed data tiles in the MBTiles layout:
an SQLite database with a metadata key/value table and a tiles table keyed
by zoom, column and row. Rows follow the TMS scheme, so the Y coordinate is
flipped relative to the XYZ addressing used everywhere else in this module.

The codec descriptor is stored as JSON under the "encoding" metadata key so
a tileset is self-describing: a decoder needs nothing beyond the database.
*/
package mbtiles

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb/maptile"

	"github.com/bward/datatiles/encoding"
)

// EncodingKey is the metadata table key holding the codec descriptor.
const EncodingKey = "encoding"

func flipY(t maptile.Tile) uint32 {
	return 1<<uint32(t.Z) - 1 - t.Y
}

// Writer writes one MBTiles database. It is the serialization point of the
// encode pipeline: a single Writer must not be shared between goroutines.
type Writer struct {
	db       *sql.DB
	compress bool
}

// Create opens or creates an MBTiles database for writing. When compress
// is set, tile blobs are gzip-compressed on disk.
func Create(file string, compress bool) (*Writer, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS metadata (name TEXT NOT NULL PRIMARY KEY, value TEXT NOT NULL)"); err != nil {
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS tiles (zoom_level INTEGER NOT NULL, tile_column INTEGER NOT NULL, tile_row INTEGER NOT NULL, tile_data BLOB NOT NULL)"); err != nil {
		return nil, err
	}

	if _, err = db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (zoom_level, tile_column, tile_row)"); err != nil {
		return nil, err
	}

	return &Writer{
		db:       db,
		compress: compress,
	}, nil
}

// SetMetadata stores one metadata key/value pair, replacing any previous
// value.
func (w *Writer) SetMetadata(name, value string) error {
	_, err := w.db.Exec("INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)", name, value)
	return err
}

// WriteSpec stores the codec descriptor plus the standard tilejson keys.
func (w *Writer) WriteSpec(name string, spec *encoding.Spec, minZoom, maxZoom int) error {
	b, err := json.Marshal(spec)
	if err != nil {
		return err
	}

	for _, kv := range [][2]string{
		{"name", name},
		{"format", "png"},
		{"tilejson", "2.0.0"},
		{"version", "1.0.0"},
		{"minzoom", fmt.Sprintf("%d", minZoom)},
		{"maxzoom", fmt.Sprintf("%d", maxZoom)},
		{EncodingKey, string(b)},
	} {
		if err := w.SetMetadata(kv[0], kv[1]); err != nil {
			return err
		}
	}

	return nil
}

// WriteTile stores one tile blob at the given XYZ coordinates.
func (w *Writer) WriteTile(t maptile.Tile, data []byte) error {
	if w.compress {
		b := new(bytes.Buffer)
		gw := gzip.NewWriter(b)
		if _, err := gw.Write(data); err != nil {
			return err
		}
		if err := gw.Close(); err != nil {
			return err
		}
		data = b.Bytes()
	}

	_, err := w.db.Exec("INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)",
		t.Z, t.X, flipY(t), data)
	return err
}

// Close closes the underlying database.
func (w *Writer) Close() error {
	return w.db.Close()
}

// Reader reads an MBTiles database. It is safe for concurrent use.
type Reader struct {
	db *sql.DB
}

// Open opens an MBTiles database for reading.
func Open(file string) (*Reader, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	return &Reader{
		db: db,
	}, nil
}

// Tile returns the blob stored at the given XYZ coordinates, transparently
// decompressing gzip-compressed tiles. It returns nil with no error when
// the tile does not exist.
func (r *Reader) Tile(t maptile.Tile) ([]byte, error) {
	var data []byte
	switch err := r.db.QueryRow("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?",
		t.Z, t.X, flipY(t)).Scan(&data); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
	default:
		return nil, err
	}

	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		return io.ReadAll(gr)
	}

	return data, nil
}

// Metadata returns the full metadata table.
func (r *Reader) Metadata() (map[string]string, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		meta[name] = value
	}
	return meta, rows.Err()
}

// Spec parses and validates the codec descriptor stored in the tileset.
func (r *Reader) Spec() (*encoding.Spec, error) {
	var value string
	switch err := r.db.QueryRow("SELECT value FROM metadata WHERE name = ?", EncodingKey).Scan(&value); err {
	case sql.ErrNoRows:
		return nil, fmt.Errorf("%w: tileset has no %q metadata", encoding.ErrMalformedMetadata, EncodingKey)
	case nil:
		return encoding.ParseMetadata([]byte(value))
	default:
		return nil, err
	}
}

// Close closes the underlying database.
func (r *Reader) Close() error {
	return r.db.Close()
}
