package main

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	clientSecretJSON   = `{"API_BASE_URL":"https://api.ume.example/api/v1/","SANDBOX_JWT_SECRET":"s3cret"}`
	postgresSecretJSON = `{"username":"user","password":"pass","engine":"postgres","host":"db.internal","port":5432,"dbname":"ume"}`
)

// isolateEnv restores every variable the prod secrets may set.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"API_BASE_URL", "SANDBOX_JWT_SECRET", "DB_USERNAME", "DB_PASSWORD", "DB_HOST", "DB_PORT", "DB_NAME", "VALKEY_ADDR"} {
		t.Setenv(key, "")
	}
}

func stubSecrets(t *testing.T, secrets map[string]string) {
	t.Helper()
	originalGetSecret := getSecret
	t.Cleanup(func() { getSecret = originalGetSecret })
	getSecret = func(name string) (string, error) {
		if value, ok := secrets[name]; ok {
			return value, nil
		}
		return "", errors.New("secret not found: " + name)
	}
}

func TestLoadSecretMapErrors(t *testing.T) {
	stubSecrets(t, map[string]string{"broken": "not-json"})

	_, err := loadSecretMap("missing")
	assert.Error(t, err)
	_, err = loadSecretMap("broken")
	assert.Error(t, err)
}

func TestSetEnvFromMapError(t *testing.T) {
	originalSetEnv := setEnv
	defer func() { setEnv = originalSetEnv }()
	setEnv = func(key, value string) error { return errors.New("setenv error") }

	assert.Error(t, setEnvFromMap(map[string]string{"KEY": "value"}))
}

func TestValidatePostgresSecret(t *testing.T) {
	assert.Error(t, validatePostgresSecret(postgresSecret{}))
	assert.Error(t, validatePostgresSecret(postgresSecret{Username: "user", Password: "pass", Host: "host", DBName: "ume"}))
	assert.NoError(t, validatePostgresSecret(postgresSecret{Username: "user", Password: "pass", Host: "host", DBName: "ume", Port: 5432}))
}

func TestLoadPostgresSecret(t *testing.T) {
	stubSecrets(t, map[string]string{postgresSecretName: postgresSecretJSON})
	secret, err := loadPostgresSecret()
	assert.NoError(t, err)
	assert.Equal(t, "db.internal", secret.Host)
	assert.Equal(t, 5432, secret.Port)

	stubSecrets(t, map[string]string{postgresSecretName: `{"username":"","password":"pass","host":"h","port":5432,"dbname":"ume"}`})
	_, err = loadPostgresSecret()
	assert.Error(t, err)

	stubSecrets(t, map[string]string{postgresSecretName: "not-json"})
	_, err = loadPostgresSecret()
	assert.Error(t, err)
}

func TestLoadProdSecretsClientOnly(t *testing.T) {
	t.Setenv("SESSION_BACKEND", "sqlite")
	isolateEnv(t)
	stubSecrets(t, map[string]string{clientSecretName: clientSecretJSON})

	assert.NoError(t, loadProdSecrets())
	assert.Equal(t, "https://api.ume.example/api/v1/", os.Getenv("API_BASE_URL"))
}

func TestLoadProdSecretsPostgresBackend(t *testing.T) {
	t.Setenv("SESSION_BACKEND", "postgres")
	isolateEnv(t)
	stubSecrets(t, map[string]string{
		clientSecretName:   clientSecretJSON,
		postgresSecretName: postgresSecretJSON,
		valkeySecretName:   `{"VALKEY_ADDR":"cache.internal:6379"}`,
	})

	assert.NoError(t, loadProdSecrets())
	assert.Equal(t, "db.internal", os.Getenv("DB_HOST"))
	assert.Equal(t, "5432", os.Getenv("DB_PORT"))
	assert.Equal(t, "ume", os.Getenv("DB_NAME"))
	assert.Equal(t, "cache.internal:6379", os.Getenv("VALKEY_ADDR"))
}

func TestLoadProdSecretsPostgresMissing(t *testing.T) {
	t.Setenv("SESSION_BACKEND", "postgres")
	isolateEnv(t)
	stubSecrets(t, map[string]string{clientSecretName: clientSecretJSON})

	assert.Error(t, loadProdSecrets())
}

func TestLoadProdSecretsValkeyOptional(t *testing.T) {
	t.Setenv("SESSION_BACKEND", "valkey")
	isolateEnv(t)
	stubSecrets(t, map[string]string{clientSecretName: clientSecretJSON})

	assert.NoError(t, loadProdSecrets())
}

func TestLoadProdSecretsSetEnvFailures(t *testing.T) {
	t.Setenv("SESSION_BACKEND", "postgres")
	stubSecrets(t, map[string]string{
		clientSecretName:   clientSecretJSON,
		postgresSecretName: postgresSecretJSON,
		valkeySecretName:   `{"VALKEY_ADDR":"cache.internal:6379"}`,
	})
	originalSetEnv := setEnv
	defer func() { setEnv = originalSetEnv }()

	failKeys := []string{
		"API_BASE_URL",
		"DB_USERNAME",
		"DB_PASSWORD",
		"DB_HOST",
		"DB_PORT",
		"DB_NAME",
		"VALKEY_ADDR",
	}
	for _, failKey := range failKeys {
		t.Run(failKey, func(t *testing.T) {
			setEnv = func(key, value string) error {
				if key == failKey {
					return errors.New("setenv error")
				}
				return nil
			}
			assert.Error(t, loadProdSecrets())
		})
	}
}
