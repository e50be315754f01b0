package main

import (
	"context"
	"flag"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/vincent-vinf/go-jsend"
	"go.uber.org/zap"

	"usbcamd/pkg/camera"
	"usbcamd/pkg/driver"
	"usbcamd/pkg/storage"
	"usbcamd/pkg/utils"
	"usbcamd/pkg/utils/ps"
	"usbcamd/pkg/video"
	"usbcamd/pkg/webdav"
)

const (
	webDavStart    = "start"
	webDavShutdown = "shutdown"

	ntpHost        = "pool.ntp.org"
	maxClockOffset = 5 * time.Second

	pictureTimeout = 5 * time.Second
	streamQuality  = 80
)

var (
	port       = flag.Int("port", 9999, "api port")
	webdavPort = flag.Int("webdav-port", 9998, "webdav port")
	storageDir = flag.String("dir", "./usbcamd", "picture storage dir")
	nodesFlag  = flag.String("nodes", "", "comma-separated device nodes to probe instead of /dev/video0..9")

	logger *zap.SugaredLogger

	hw  *camera.Hardware
	stg *storage.Store

	// raw preview frames fanned out to the MJPEG stream handler
	previewFrames = make(chan []byte, 1)
	// still payloads from the compressed-image callback
	pictures = make(chan []byte, 1)

	recorderLock sync.Mutex
	recorder     *video.Recorder

	cancelWebdav context.CancelFunc
	cancelLock   sync.Mutex
)

func init() {
	logger = utils.GetLogger()
	flag.Parse()
}

func main() {
	defer logger.Sync()
	defer func() {
		if cancelWebdav != nil {
			cancelWebdav()
		}
	}()

	checkClock()

	var err error
	stg, err = storage.New(*storageDir)
	if err != nil {
		logger.Fatal(err)
	}

	var opts []camera.Option
	if *nodesFlag != "" {
		opts = append(opts, camera.WithNodes(strings.Split(*nodesFlag, ",")))
	}
	module := camera.NewModule(func() driver.Driver { return driver.NewV4L2() }, opts...)
	hw, err = module.Open(0)
	if err != nil {
		logger.Fatal(err)
	}
	hw.SetCallbacks(onNotify, onData, onDataTimestamp, nil)
	hw.EnableMessage(camera.MsgPreviewFrame | camera.MsgShutter | camera.MsgCompressedImage | camera.MsgFocus)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(utils.Cors())
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, jsend.SimpleErr("page not found"))
	})

	apiRouter := r.Group("/api")

	cameraRouter := apiRouter.Group("/camera")
	cameraRouter.GET("", getCamera)
	cameraRouter.PUT("/config", putConfig)
	cameraRouter.POST("/preview/start", startPreview)
	cameraRouter.POST("/preview/stop", stopPreview)
	cameraRouter.GET("/preview/stream", streamPreview)
	cameraRouter.POST("/picture", takePicture)
	cameraRouter.POST("/autofocus", autoFocus)
	cameraRouter.POST("/recording/start", startRecording)
	cameraRouter.POST("/recording/stop", stopRecording)

	pictureRouter := apiRouter.Group("/pictures")
	pictureRouter.GET("", listPictures)
	pictureRouter.GET("/latest", latestPicture)

	apiRouter.GET("/status", getStatus)
	apiRouter.PUT("/webdav", ctlWebdav)

	defer hw.StopPreview()
	utils.ListenAndServe(r, *port)
}

// checkClock warns when the system clock has drifted; picture names and
// video timestamps come from it and the device usually has no RTC.
func checkClock() {
	resp, err := ntp.Query(ntpHost)
	if err != nil {
		logger.Warnf("ntp query %s failed: %s", ntpHost, err)
		return
	}
	offset := resp.ClockOffset
	if offset < 0 {
		offset = -offset
	}
	if offset > maxClockOffset {
		logger.Warnf("system clock is off by %s", resp.ClockOffset)
		return
	}
	logger.Infof("system clock ok, ntp offset %s", resp.ClockOffset)
}

func onNotify(msg camera.Message, status, extra int32, _ any) {
	logger.Infof("notify: %s status=%d extra=%d", msg, status, extra)
}

func onData(msg camera.Message, buf *camera.Buffer, _ any) {
	// the region is reused in place for the next frame, copy before fanout
	frame := append([]byte(nil), buf.Bytes()...)
	switch msg {
	case camera.MsgPreviewFrame:
		select {
		case previewFrames <- frame:
		default:
			select {
			case <-previewFrames:
			default:
			}
			select {
			case previewFrames <- frame:
			default:
			}
		}
	case camera.MsgCompressedImage:
		select {
		case pictures <- frame:
		default:
		}
	}
}

func onDataTimestamp(_ time.Time, msg camera.Message, buf *camera.Buffer, _ any) {
	if msg != camera.MsgVideoFrame {
		return
	}
	recorderLock.Lock()
	rec := recorder
	recorderLock.Unlock()
	if rec == nil {
		return
	}

	size := hw.GetConfig().PreviewSize
	frame, err := utils.EncodeJPEGBytes(utils.DecodeYUV420SP(buf.Bytes(), size.Width, size.Height), streamQuality)
	if err != nil {
		logger.Warnf("encode video frame: %s", err)
		return
	}
	if err := rec.AddFrame(frame); err != nil {
		logger.Warnf("record video frame: %s", err)
	}
}

func getCamera(c *gin.Context) {
	c.JSON(http.StatusOK, jsend.Success(hw.Status()))
}

func putConfig(c *gin.Context) {
	var cfg camera.Config
	if err := c.Bind(&cfg); err != nil {
		return
	}
	if err := hw.SetConfig(cfg); err != nil {
		c.JSON(http.StatusBadRequest, jsend.SimpleErr(err.Error()))
		return
	}

	c.JSON(http.StatusOK, jsend.Success(hw.GetConfig()))
}

func startPreview(c *gin.Context) {
	if err := hw.StartPreview(); err != nil {
		c.JSON(http.StatusConflict, jsend.SimpleErr(err.Error()))
		return
	}

	c.JSON(http.StatusOK, jsend.Success(nil))
}

func stopPreview(c *gin.Context) {
	hw.StopPreview()
	c.JSON(http.StatusOK, jsend.Success(nil))
}

// streamPreview re-encodes raw preview frames as an MJPEG multipart
// stream, one part per frame.
func streamPreview(c *gin.Context) {
	mimeWriter := multipart.NewWriter(c.Writer)
	c.Header("Content-Type", fmt.Sprintf("multipart/x-mixed-replace; boundary=%s", mimeWriter.Boundary()))
	partHeader := make(textproto.MIMEHeader)
	partHeader.Add("Content-Type", "image/jpeg")

	for {
		var frame []byte
		select {
		case <-c.Request.Context().Done():
			return
		case frame = <-previewFrames:
		}

		size := hw.GetConfig().PreviewSize
		if len(frame) < size.Width*size.Height*2 {
			continue
		}
		partWriter, err := mimeWriter.CreatePart(partHeader)
		if err != nil {
			logger.Warnf("create multipart part: %s", err)
			return
		}
		if err := utils.EncodeJPEG(utils.DecodeYUYV(frame, size.Width, size.Height), partWriter, streamQuality); err != nil {
			logger.Warnf("encode preview frame: %s", err)
		}
	}
}

func takePicture(c *gin.Context) {
	// drop a stale payload from an interrupted earlier cycle
	select {
	case <-pictures:
	default:
	}

	if err := hw.TakePicture(); err != nil {
		c.JSON(http.StatusInternalServerError, jsend.SimpleErr(err.Error()))
		return
	}

	select {
	case payload := <-pictures:
		name, err := stg.SavePicture(payload)
		if err != nil {
			c.JSON(http.StatusInternalServerError, jsend.SimpleErr(err.Error()))
			return
		}
		c.JSON(http.StatusOK, jsend.Success(gin.H{
			"name": name,
			"size": humanize.Bytes(uint64(len(payload))),
		}))
	case <-time.After(pictureTimeout):
		c.JSON(http.StatusInternalServerError, jsend.SimpleErr("no picture delivered"))
	}
}

func autoFocus(c *gin.Context) {
	if err := hw.AutoFocus(); err != nil {
		c.JSON(http.StatusInternalServerError, jsend.SimpleErr(err.Error()))
		return
	}

	c.JSON(http.StatusOK, jsend.Success(nil))
}

func startRecording(c *gin.Context) {
	recorderLock.Lock()
	defer recorderLock.Unlock()
	if recorder != nil {
		c.JSON(http.StatusConflict, jsend.SimpleErr("recording already running"))
		return
	}

	cfg := hw.GetConfig()
	name := time.Now().Format("20060102-150405")
	rec, err := video.NewRecorder(stg.VideoPath(name), cfg.PreviewSize.Width, cfg.PreviewSize.Height, cfg.PreviewFrameRate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, jsend.SimpleErr(err.Error()))
		return
	}
	recorder = rec

	hw.EnableMessage(camera.MsgVideoFrame)
	if err := hw.StartRecording(); err != nil {
		c.JSON(http.StatusInternalServerError, jsend.SimpleErr(err.Error()))
		return
	}

	c.JSON(http.StatusOK, jsend.Success(gin.H{"path": rec.Path()}))
}

func stopRecording(c *gin.Context) {
	hw.StopRecording()
	hw.DisableMessage(camera.MsgVideoFrame)

	recorderLock.Lock()
	defer recorderLock.Unlock()
	if recorder == nil {
		c.JSON(http.StatusOK, jsend.Success(nil))
		return
	}
	frames := recorder.Frames()
	path := recorder.Path()
	if err := recorder.Close(); err != nil {
		logger.Warnf("close recorder: %s", err)
	}
	recorder = nil

	c.JSON(http.StatusOK, jsend.Success(gin.H{
		"path":   path,
		"frames": frames,
	}))
}

func listPictures(c *gin.Context) {
	files, err := stg.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, jsend.SimpleErr(err.Error()))
		return
	}

	c.JSON(http.StatusOK, jsend.Success(files))
}

func latestPicture(c *gin.Context) {
	name, data, err := stg.Latest()
	if err != nil {
		c.JSON(http.StatusNotFound, jsend.SimpleErr(err.Error()))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	c.Data(http.StatusOK, "image/jpeg", data)
}

func getStatus(c *gin.Context) {
	cpu, err := ps.CPUStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, jsend.SimpleErr(err.Error()))
		return
	}
	memory, err := ps.MemoryStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, jsend.SimpleErr(err.Error()))
		return
	}
	disk, err := ps.DiskStatus(*storageDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, jsend.SimpleErr(err.Error()))
		return
	}
	used, err := ps.DirDiskUsage(*storageDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, jsend.SimpleErr(err.Error()))
		return
	}

	c.JSON(http.StatusOK, jsend.Success(gin.H{
		"cpu":         cpu,
		"memory":      memory,
		"disk":        disk,
		"storageUsed": humanize.Bytes(uint64(used)),
		"camera":      hw.Status(),
	}))
}

func ctlWebdav(c *gin.Context) {
	switch op := c.Query("op"); op {
	case webDavStart:
		startWebdav(c)
	case webDavShutdown:
		shutdownWebdav(c)
	default:
		c.JSON(http.StatusBadRequest, jsend.SimpleErr("unknown operation"))
	}
}

func startWebdav(c *gin.Context) {
	cancelLock.Lock()
	defer cancelLock.Unlock()
	if cancelWebdav != nil {
		c.JSON(http.StatusOK, jsend.Success("the webdav service is already enabled"))
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	webdav.Serve(ctx, *webdavPort, *storageDir)
	cancelWebdav = cancel

	c.JSON(http.StatusOK, jsend.Success(c.Request.Host))
}

func shutdownWebdav(c *gin.Context) {
	cancelLock.Lock()
	defer cancelLock.Unlock()
	if cancelWebdav == nil {
		c.JSON(http.StatusOK, jsend.SimpleErr("the webdav service has been shut down"))
		return
	}
	cancelWebdav()
	cancelWebdav = nil

	c.JSON(http.StatusOK, jsend.Success(nil))
}
