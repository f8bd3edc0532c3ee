// Package openh264 binds the OpenH264 library as a godec.Engine.
package openh264

/*
#cgo LDFLAGS: -lopenh264
#include <string.h>
#include <wels/codec_api.h>

static long create_decoder(ISVCDecoder **dec) {
	return (long)WelsCreateDecoder(dec);
}

static long init_decoder(ISVCDecoder *dec, int targetLayer, int concealment, int bitstream) {
	SDecodingParam par;
	memset(&par, 0, sizeof(par));
	par.uiTargetDqLayer = (unsigned char)targetLayer;
	par.eEcActiveIdc = (ERROR_CON_IDC)concealment;
	par.sVideoProperty.eVideoBsType = (VIDEO_BITSTREAM_TYPE)bitstream;
	return (*dec)->Initialize(dec, &par);
}

static long decode_unit(ISVCDecoder *dec, const unsigned char *data, int len,
                        unsigned char **planes, SBufferInfo *info) {
	return (long)(*dec)->DecodeFrameNoDelay(dec, data, len, planes, info);
}

static long flush_decoder(ISVCDecoder *dec, unsigned char **planes, SBufferInfo *info) {
	return (long)(*dec)->FlushFrame(dec, planes, info);
}

static int picture_layout(const SBufferInfo *info, int *w, int *h, int *strideY, int *strideC) {
	if (info->iBufferStatus != 1) {
		return 0;
	}
	*w = info->UsrData.sSystemBuffer.iWidth;
	*h = info->UsrData.sSystemBuffer.iHeight;
	*strideY = info->UsrData.sSystemBuffer.iStride[0];
	*strideC = info->UsrData.sSystemBuffer.iStride[1];
	return 1;
}

static void destroy_decoder(ISVCDecoder *dec) {
	(*dec)->Uninitialize(dec);
	WelsDestroyDecoder(dec);
}
*/
import "C"
import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/ugparu/godec"
)

// ConfigError reports the native code returned by a failed session
// initialization.
type ConfigError struct {
	Code int64
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("openh264: initialize decoder: code %d", e.Code)
}

var errCreateDecoder = errors.New("openh264: create decoder failed")

type engine struct {
	dec *C.ISVCDecoder
}

// New returns an unconfigured OpenH264 engine session.
func New() godec.Engine {
	return &engine{}
}

func (e *engine) Configure(cfg godec.Config) error {
	if ret := C.create_decoder(&e.dec); ret != 0 || e.dec == nil {
		e.dec = nil
		return errCreateDecoder
	}
	ret := C.init_decoder(e.dec,
		C.int(cfg.TargetLayer), C.int(cfg.Concealment), C.int(cfg.Bitstream))
	if ret != 0 {
		return &ConfigError{Code: int64(ret)}
	}
	return nil
}

func (e *engine) Submit(unit []byte) (godec.Status, *godec.Picture) {
	var (
		info   C.SBufferInfo
		planes [3]*C.uchar
	)
	var data *C.uchar
	if len(unit) > 0 {
		data = (*C.uchar)(unsafe.Pointer(&unit[0]))
	}
	st := C.decode_unit(e.dec, data, C.int(len(unit)), &planes[0], &info)
	return godec.Status(st), picture(&info, planes)
}

func (e *engine) Flush() *godec.Picture {
	var (
		info   C.SBufferInfo
		planes [3]*C.uchar
	)
	C.flush_decoder(e.dec, &planes[0], &info)
	return picture(&info, planes)
}

func (e *engine) Close() {
	if e.dec == nil {
		return
	}
	C.destroy_decoder(e.dec)
	e.dec = nil
}

// picture wraps the engine-owned plane buffers without copying; the
// descriptor follows the validity rules of godec.Picture.
func picture(info *C.SBufferInfo, planes [3]*C.uchar) *godec.Picture {
	var w, h, strideY, strideC C.int
	if C.picture_layout(info, &w, &h, &strideY, &strideC) == 0 {
		return nil
	}
	return &godec.Picture{
		Width:  int(w),
		Height: int(h),
		Planes: [3][]byte{
			unsafe.Slice((*byte)(planes[0]), int(strideY)*int(h)),
			unsafe.Slice((*byte)(planes[1]), int(strideC)*int(h)/2),
			unsafe.Slice((*byte)(planes[2]), int(strideC)*int(h)/2),
		},
		Strides: [3]int{int(strideY), int(strideC), int(strideC)},
	}
}
