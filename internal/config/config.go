package config

import (
	"time"

	"github.com/IBM/sarama"
	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"querytool"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	AdminAddress    string `envconfig:"REPORT_DELIVERY_ADMIN_ADDRESS" default:":8080"`
	BaseUrl         string `envconfig:"REPORT_DELIVERY_BASE_URL" default:"https://localhost:3443"`
	DownloadRoute   string `envconfig:"REPORT_DELIVERY_DOWNLOAD_ROUTE" default:"/api/v1/reports/download/"`
	LogLevel        string `envconfig:"REPORT_DELIVERY_LOG_LEVEL" default:"info"`
	MigrationFolder string `envconfig:"REPORT_DELIVERY_MIGRATIONS_FOLDER" default:"db/migrations"`
	Queue           queueConfig
	Email           emailConfig
	Storage         storageConfig
	Kafka           kafkaConfig
}

type queueConfig struct {
	// PrefetchLimit bounds the number of report jobs worked concurrently.
	PrefetchLimit   int           `envconfig:"REPORT_DELIVERY_QUEUE_PREFETCH" default:"1"`
	RetentionWindow time.Duration `envconfig:"REPORT_DELIVERY_RETENTION_WINDOW" default:"168h"`
}

type emailConfig struct {
	RootUrl    string `envconfig:"REPORT_DELIVERY_EMAIL_URL" default:""`
	ApiKey     string `envconfig:"REPORT_DELIVERY_EMAIL_API_KEY" default:""`
	AppName    string `envconfig:"REPORT_DELIVERY_EMAIL_APP_NAME" default:"query-tool"`
	From       string `envconfig:"REPORT_DELIVERY_EMAIL_FROM" default:"alerts@querytool.local"`
	Subject    string `envconfig:"REPORT_DELIVERY_EMAIL_SUBJECT" default:"Query Tool: Query Report Download"`
	TemplateId string `envconfig:"REPORT_DELIVERY_EMAIL_TEMPLATE_ID" default:"query_report_delivered"`
}

type storageConfig struct {
	// Backend is either "local" or "s3".
	Backend     string `envconfig:"REPORT_DELIVERY_STORAGE_BACKEND" default:"local"`
	Root        string `envconfig:"REPORT_DELIVERY_STORAGE_ROOT" default:"/var/lib/report-delivery"`
	QueryFolder string `envconfig:"REPORT_DELIVERY_QUERY_FOLDER" default:"/var/lib/report-delivery/queries"`
	S3Endpoint  string `envconfig:"REPORT_DELIVERY_S3_ENDPOINT" default:""`
	S3Bucket    string `envconfig:"REPORT_DELIVERY_S3_BUCKET" default:"query-results"`
	S3AccessKey string `envconfig:"REPORT_DELIVERY_S3_ACCESS_KEY" default:""`
	S3SecretKey string `envconfig:"REPORT_DELIVERY_S3_SECRET_KEY" default:""`
	S3UseSSL    bool   `envconfig:"REPORT_DELIVERY_S3_USE_SSL" default:"false"`
}

type kafkaConfig struct {
	Brokers  []string            `envconfig:"REPORT_DELIVERY_KAFKA_BROKERS" default:""`
	Topic    string              `envconfig:"REPORT_DELIVERY_KAFKA_TOPIC" default:""`
	Version  sarama.KafkaVersion `envconfig:"REPORT_DELIVERY_KAFKA_VERSION" default:""`
	ClientID string              `envconfig:"REPORT_DELIVERY_KAFKA_CLIENT_ID" default:""`

	SaramaConfig *sarama.Config
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a config populated with defaults only, used by tests.
func NewDefault() *Config {
	cfg := new(Config)
	if err := envconfig.Process("test_report_delivery", cfg); err != nil {
		panic(err)
	}
	return cfg
}
