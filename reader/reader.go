// Package reader acquires a fully-buffered elementary stream from a
// named source. Raw Annex-B files pass through untouched; MP4
// containers are unpacked into the Annex-B elementary stream of their
// first video track.
package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/ugparu/godec/utils/logger"
)

// InputError reports that the byte stream could not be obtained. It is
// fatal and always precedes any engine interaction, so it is never
// conflated with decode errors.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("read source %q: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

var errNoVideoTrack = errors.New("no AVC video track found")

const readerTag = "READER"

// ReadSource reads the whole named source into memory and returns it as
// an Annex-B elementary stream.
func ReadSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	if !isMP4(data) {
		logger.Debugf(readerTag, "Read %d bytes of raw elementary stream from %s", len(data), path)
		return data, nil
	}

	logger.Debugf(readerTag, "Unpacking MP4 container %s", path)
	es, err := annexBFromMP4(data)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	return es, nil
}

// isMP4 sniffs the leading box header rather than trusting the file
// extension.
func isMP4(data []byte) bool {
	return len(data) >= 8 && bytes.Equal(data[4:8], []byte("ftyp"))
}

func annexBFromMP4(data []byte) ([]byte, error) {
	f, err := mp4.DecodeFile(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if f.IsFragmented() {
		return annexBFromFragmented(f)
	}
	return annexBFromProgressive(f, bytes.NewReader(data))
}

// findAVCTrack returns the first video trak and its avcC configuration.
func findAVCTrack(moov *mp4.MoovBox) (*mp4.TrakBox, *mp4.AvcCBox) {
	if moov == nil {
		return nil, nil
	}
	for _, trak := range moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
			continue
		}
		var avcC *mp4.AvcCBox
		if trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil && trak.Mdia.Minf.Stbl.Stsd != nil {
			for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
				if avc1, ok := child.(*mp4.VisualSampleEntryBox); ok {
					avcC = avc1.AvcC
				}
			}
		}
		return trak, avcC
	}
	return nil, nil
}

// paramSetsAnnexB emits the out-of-band SPS/PPS sets as prefixed units,
// so the elementary stream is self-contained.
func paramSetsAnnexB(avcC *mp4.AvcCBox) []byte {
	var es []byte
	if avcC == nil {
		return es
	}
	for _, sps := range avcC.SPSnalus {
		es = append(es, 0, 0, 0, 1)
		es = append(es, sps...)
	}
	for _, pps := range avcC.PPSnalus {
		es = append(es, 0, 0, 0, 1)
		es = append(es, pps...)
	}
	return es
}

func annexBFromProgressive(f *mp4.File, rs io.ReadSeeker) ([]byte, error) {
	trak, avcC := findAVCTrack(f.Moov)
	if trak == nil {
		return nil, errNoVideoTrack
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsz == nil {
		return nil, errors.New("no sample table found")
	}
	stbl := trak.Mdia.Minf.Stbl

	es := paramSetsAnnexB(avcC)
	for nr := uint32(1); nr <= stbl.Stsz.SampleNumber; nr++ {
		sample, err := readSample(stbl, rs, nr)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", nr, err)
		}
		es = append(es, avccToAnnexB(sample)...)
	}
	return es, nil
}

func annexBFromFragmented(f *mp4.File) ([]byte, error) {
	var (
		trackID uint32
		trex    *mp4.TrexBox
		avcC    *mp4.AvcCBox
	)
	if f.Init != nil {
		trak, conf := findAVCTrack(f.Init.Moov)
		if trak != nil {
			trackID = trak.Tkhd.TrackID
			avcC = conf
			if f.Init.Moov.Mvex != nil {
				for _, t := range f.Init.Moov.Mvex.Trexs {
					if t.TrackID == trackID {
						trex = t
						break
					}
				}
			}
		}
	}
	if trackID == 0 {
		return nil, errNoVideoTrack
	}

	es := paramSetsAnnexB(avcC)
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != trackID {
					continue
				}
				samples, err := frag.GetFullSamples(trex)
				if err != nil {
					return nil, fmt.Errorf("fragment samples: %w", err)
				}
				for _, sample := range samples {
					es = append(es, avccToAnnexB(sample.Data)...)
				}
			}
		}
	}
	return es, nil
}

// readSample locates one sample of a progressive file through the
// stsc/stco/stsz chunk maps and reads its bytes.
func readSample(stbl *mp4.StblBox, rs io.ReadSeeker, sampleNr uint32) ([]byte, error) {
	if stbl.Stsc == nil {
		return nil, errors.New("missing stsc box")
	}

	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(sampleNr))
	if err != nil {
		return nil, err
	}

	var chunkOffset uint64
	switch {
	case stbl.Stco != nil:
		chunkOffset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return nil, err
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return nil, errors.New("chunk nr out of range")
		}
		chunkOffset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return nil, errors.New("no stco or co64 box")
	}

	offset := chunkOffset
	for s := uint32(firstSampleInChunk); s < sampleNr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}

	if _, err := rs.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, err
	}
	data := make([]byte, stbl.Stsz.GetSampleSize(int(sampleNr)))
	if _, err := io.ReadFull(rs, data); err != nil {
		return nil, err
	}
	return data, nil
}

// avccToAnnexB rewrites length-prefixed units as start-code-prefixed
// ones. Units whose length field runs past the sample are dropped.
func avccToAnnexB(data []byte) []byte {
	var result []byte
	offset := 0
	for offset+4 <= len(data) {
		unitLen := int(data[offset])<<24 | int(data[offset+1])<<16 |
			int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4
		if unitLen < 0 || offset+unitLen > len(data) {
			break
		}
		result = append(result, 0, 0, 0, 1)
		result = append(result, data[offset:offset+unitLen]...)
		offset += unitLen
	}
	return result
}
