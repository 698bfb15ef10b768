package utils

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Retry 尝试执行 fn，如果失败则重试，最多 retries 次
// delay 是两次重试之间的间隔，backoff=true 表示指数退避
func Retry(retries int, delay time.Duration, backoff bool, fn func() error) error {
	var err error
	for i := 0; i < retries; i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if i < retries-1 { // 最后一次就不用 sleep 了
			sleep := delay
			if backoff {
				sleep = delay * time.Duration(1<<i) // 1x,2x,4x,8x...
			}
			time.Sleep(sleep)
		}
	}
	return fmt.Errorf("after %d attempts, last error: %w", retries, err)
}

// FloorFloat 向下取整保留 n 位小数
func FloorFloat(val float64, n int) float64 {
	factor := math.Pow10(n)
	return math.Floor(val*factor) / factor
}

// FormatSymbol 把 ETHUSDT 之类的ticker转换为服务端可识别的 ETH/USDT
func FormatSymbol(ticker string) string {
	quotes := []string{"USDT", "USD", "USDC"}

	for _, q := range quotes {
		if strings.HasSuffix(ticker, q) {
			base := strings.TrimSuffix(ticker, q)

			if strings.HasSuffix(base, "/") {
				return base + q
			}
			return base + "/" + q
		}
	}
	// 没匹配到就返回原始值
	return ticker
}
